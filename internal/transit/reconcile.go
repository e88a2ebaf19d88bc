package transit

// Reconcile annotates every scheduled train with the real-time estimate for
// its trip and stop. The output has the same length and order as scheduled;
// real-time data never adds or drops trains.
func Reconcile(scheduled []ScheduledTrain, realtime RealtimeUpdate) []AnnotatedTrain {
	out := make([]AnnotatedTrain, 0, len(scheduled))
	for _, train := range scheduled {
		out = append(out, annotate(train, realtime))
	}
	return out
}

func annotate(train ScheduledTrain, realtime RealtimeUpdate) AnnotatedTrain {
	if estimated, ok := realtime.Estimate(train.TripID, train.StopID); ok {
		return AnnotatedTrain{
			ScheduledTrain: train,
			Estimated:      estimated,
			Status:         StatusRealtime,
			StatusClass:    ClassRealtime,
		}
	}

	return AnnotatedTrain{
		ScheduledTrain: train,
		Estimated:      train.Scheduled,
		Status:         StatusScheduled,
		StatusClass:    ClassScheduled,
	}
}
