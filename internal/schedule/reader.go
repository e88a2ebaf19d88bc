package schedule

import "io"

type countingReader struct {
	reader io.Reader
	n      int
}

func (counter *countingReader) Read(p []byte) (int, error) {
	n, err := counter.reader.Read(p)
	counter.n += n
	return n, err
}
