package model

// SubmittedURL is a link an author sent in alongside a request.
type SubmittedURL struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Email     string `json:"email"`
}

// StoredFile is an uploaded document kept in the upload directory.
type StoredFile struct {
	ID               int64  `json:"id"`
	Timestamp        string `json:"timestamp"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	Email            string `json:"email"`
	Size             int64  `json:"size"`
	Path             string `json:"-"`
}

// Credential is a staff login.
type Credential struct {
	ID           string
	PasswordHash string
}
