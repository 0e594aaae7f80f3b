package memory

// GetOptions filter GetMemory results
type GetOptions struct {
	// Mark keeps only messages carrying this mark. Empty means no filter.
	Mark string

	// ExcludeMark drops messages carrying this mark. Empty means no filter.
	ExcludeMark string

	// PrependSummary puts the summary message first when ExcludeMark is set
	// and a summary exists. Defaults to true.
	PrependSummary bool
}

// GetOption configures a GetMemory call
type GetOption func(*GetOptions)

// WithMark keeps only messages carrying mark
func WithMark(mark string) GetOption {
	return func(o *GetOptions) { o.Mark = mark }
}

// WithExcludeMark drops messages carrying mark
func WithExcludeMark(mark string) GetOption {
	return func(o *GetOptions) { o.ExcludeMark = mark }
}

// WithPrependSummary toggles the summary message
func WithPrependSummary(prepend bool) GetOption {
	return func(o *GetOptions) { o.PrependSummary = prepend }
}

// NewGetOptions applies opts over the defaults
func NewGetOptions(opts ...GetOption) GetOptions {
	o := GetOptions{PrependSummary: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
