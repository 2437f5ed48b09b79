package hasface

// DetectionResponse is the decoded body of a detection call.
type DetectionResponse struct {
	Status       string  `json:"status"`
	ErrorCode    int     `json:"error_code,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Photos       []Photo `json:"photos"`
}

// Photo is one analysed image.
type Photo struct {
	URL    string  `json:"url"`
	PID    string  `json:"pid"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Tags   []Tag   `json:"tags"`
}

// Tag is a detected face. Only its presence is used for validation.
type Tag struct {
	TID        string         `json:"tid"`
	Label      string         `json:"label"`
	Confirmed  bool           `json:"confirmed"`
	Manual     bool           `json:"manual"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Center     *Point         `json:"center,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Point is a position expressed as a percentage of the photo size.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Tags returns the first photo's tags, or nil when there is no photo.
func (r *DetectionResponse) Tags() []Tag {
	if r == nil || len(r.Photos) == 0 {
		return nil
	}
	return r.Photos[0].Tags
}

// Failed reports whether the API declared the call a failure.
func (r *DetectionResponse) Failed() bool {
	return r != nil && r.Status == "failure"
}
