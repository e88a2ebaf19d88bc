package feeds

import (
	"fmt"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"tarediiran-industries.com/gtfs-board/internal/transit"
)

const EstimateLayout = "15:04:05"

// Decoder turns a raw feed payload into per-trip, per-stop estimates.
type Decoder interface {
	Decode(data []byte) (transit.RealtimeUpdate, error)
}

func DecodeFeedMessage(data []byte) (*gtfs.FeedMessage, error) {
	feedMessage := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(data, feedMessage); err != nil {
		return nil, fmt.Errorf("proto.Unmarshal: %w", err)
	}
	return feedMessage, nil
}

// TripUpdateDecoder reads GTFS-Realtime TripUpdate entities. Estimates are
// formatted as wall-clock times in Location (UTC when nil).
type TripUpdateDecoder struct {
	Location *time.Location
}

func (decoder TripUpdateDecoder) Decode(data []byte) (transit.RealtimeUpdate, error) {
	feedMessage, err := DecodeFeedMessage(data)
	if err != nil {
		return nil, err
	}
	return decoder.FromFeedMessage(feedMessage), nil
}

func (decoder TripUpdateDecoder) FromFeedMessage(feedMessage *gtfs.FeedMessage) transit.RealtimeUpdate {
	location := decoder.Location
	if location == nil {
		location = time.UTC
	}

	update := transit.RealtimeUpdate{}
	for _, entity := range feedMessage.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		tripID := tripUpdate.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}

		for _, stopTimeUpdate := range tripUpdate.GetStopTimeUpdate() {
			stopID := stopTimeUpdate.GetStopId()
			if stopID == "" {
				continue
			}

			// Delay-only updates carry no absolute time to show.
			eventTime := stopTimeUpdate.GetArrival().GetTime()
			if eventTime == 0 {
				eventTime = stopTimeUpdate.GetDeparture().GetTime()
			}
			if eventTime == 0 {
				continue
			}

			update.Set(tripID, stopID, time.Unix(eventTime, 0).In(location).Format(EstimateLayout))
		}
	}

	return update
}

// StaticDecoder ignores the payload and always yields the same estimates.
type StaticDecoder struct {
	Update transit.RealtimeUpdate
}

func (decoder StaticDecoder) Decode([]byte) (transit.RealtimeUpdate, error) {
	return decoder.Update.Clone(), nil
}
