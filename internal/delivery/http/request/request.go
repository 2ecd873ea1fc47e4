package request

type SubmitCaptureRequest struct {
	CityIDs []string `json:"city_ids"`
	Force   bool     `json:"force_capture"`
}
