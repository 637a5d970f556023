package models

// UploadedFile - дескриптор загруженного файла.
// Содержимое берется либо из StoragePath, либо из Buffer.
type UploadedFile struct {
	OriginalName string
	StoragePath  string
	Buffer       []byte
	MimeType     string
	SizeBytes    int64
}

func (f UploadedFile) HasPath() bool {
	return f.StoragePath != ""
}

func (f UploadedFile) HasBuffer() bool {
	return f.Buffer != nil
}
