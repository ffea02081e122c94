package port

import "context"

// AnswerStream is the token channel an answer is streamed through. A
// reference is claimed with Attach and released by exactly one of Finish or
// StreamError.
type AnswerStream interface {
	TokenSink

	// Attach claims reference for one producer. cancel aborts the producer
	// when the consumer goes away early.
	Attach(reference string, cancel context.CancelFunc) error

	// Finish marks the reference's stream as successfully completed.
	Finish(reference string)
}

// TextSplitter splits extracted text into overlapping chunks.
type TextSplitter interface {
	SplitText(text string) ([]string, error)
}
