package api

// UploadFiles
type uploadedFileResp struct {
	OriginalName string `json:"originalName"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

type errorResp struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}
