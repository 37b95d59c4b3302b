package domain

// Status summarises the pipeline for display next to the chart.
type Status struct {
	Producer       string  `json:"producer"`
	ProducerActive bool    `json:"producer_active"`
	WindowMode     string  `json:"window_mode"`
	WindowSeconds  float64 `json:"window_seconds,omitempty"`
	MaxPoints      int     `json:"max_points,omitempty"`
	WindowPoints   int     `json:"window_points"`
	ChannelLength  int     `json:"channel_length"`
	Appended       uint64  `json:"appended"`
	Evicted        uint64  `json:"evicted"`
	Anomalies      uint64  `json:"anomalies"`
}
