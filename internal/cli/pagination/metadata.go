package pagination

// Meta describes the window of a paged listing.
type Meta struct {
	TotalItems int  `json:"total_items"`
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit,omitempty"`
	Returned   int  `json:"returned"`
	HasNext    bool `json:"has_next"`
}

// NewMeta builds metadata for a listing of totalCount items windowed by p.
func NewMeta(p Params, totalCount int) Meta {
	offset, limit := p.OffsetLimit()
	if p.IsPageBased() && totalCount > 0 && offset >= totalCount {
		offset = ((totalCount - 1) / p.PageSize) * p.PageSize
	}

	returned := 0
	if offset < totalCount {
		returned = totalCount - offset
		if limit > 0 && limit < returned {
			returned = limit
		}
	}

	return Meta{
		TotalItems: totalCount,
		Offset:     offset,
		Limit:      limit,
		Returned:   returned,
		HasNext:    offset+returned < totalCount,
	}
}
