package forecast

// Label is the display name attached to a forecast once geocoding has
// resolved it. Country may be empty.
type Label struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// Daily holds the 7-day series as parallel arrays, one entry per day.
// WeatherCode and UVIndexMax are optional; when present the collaborator is
// trusted to keep them the same length as Time.
type Daily struct {
	Time           []string  `json:"time"`
	TemperatureMax []float64 `json:"temperature_2m_max"`
	TemperatureMin []float64 `json:"temperature_2m_min"`
	WeatherCode    []int     `json:"weathercode,omitempty"`
	WindSpeedMax   []float64 `json:"windspeed_10m_max"`
	PrecipSum      []float64 `json:"precipitation_sum"`
	UVIndexMax     []float64 `json:"uv_index_max,omitempty"`
}

// Record is one location's forecast: the daily series plus an optional
// display label merged in after geocoding.
type Record struct {
	Daily    Daily  `json:"daily"`
	Timezone string `json:"timezone,omitempty"`
	Location *Label `json:"location,omitempty"`
}
