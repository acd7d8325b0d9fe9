package model

// ClipAnalysis is the visual-property vector the Analysis Service returns
// for one clip. Brightness and contrast are normalized to 0..1; color
// temperature is in Kelvin.
type ClipAnalysis struct {
	ClipID           string   `json:"clip_id"`
	Brightness       float64  `json:"brightness"`
	Contrast         float64  `json:"contrast"`
	DominantColors   []string `json:"dominant_colors"`
	ColorTemperature int      `json:"color_temperature"`
}

// FilterAssignment pairs a clip with the filter specification the Grading
// Advisor chose for it. The spec string is opaque to this service; its
// grammar is owned by the advisor and the executor.
type FilterAssignment struct {
	ClipID     string `json:"clip_id"`
	FilterSpec string `json:"filter_spec"`
}
