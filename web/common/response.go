package common

// Envelope wraps a single payload.
type Envelope[T any] struct {
	Data T `json:"data"`
}

func NewSuccessResponse[T any](data T) *Envelope[T] {
	return &Envelope[T]{Data: data}
}

type Pagination struct {
	Total int `json:"total"`
}

// ListEnvelope wraps a slice together with its size.
type ListEnvelope[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func NewSearchResponse[T any](data []T) *ListEnvelope[T] {
	if data == nil {
		data = []T{}
	}
	return &ListEnvelope[T]{Data: data, Pagination: Pagination{Total: len(data)}}
}
