package dto

// MediaUploadResponse returns the stored media id and its delivery URL.
type MediaUploadResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
