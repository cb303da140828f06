package analytics

// Response envelopes of the analytics endpoints.

type TimeSeriesResponse struct {
	Period Period  `json:"period"`
	Data   []Point `json:"data"`
}

type FunnelResponse struct {
	Stages []FunnelStage `json:"stages"`
}

type SourcesResponse struct {
	Sources []SourceBucket `json:"sources"`
}

type NeighborhoodsResponse struct {
	Neighborhoods []NeighborhoodBucket `json:"neighborhoods"`
}
