package generation

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Success        bool   `json:"success"`
	ResultImageURL string `json:"resultImageUrl,omitempty"`
	Msg            string `json:"msg,omitempty"`
}
