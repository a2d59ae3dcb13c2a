package models

import "time"

type Media struct {
	ID         string
	UploadedBy string
	Bucket     string
	ObjectKey  string
	Format     string
	MIME       string
	SizeBytes  int64
	AltText    string
	Checksum   []byte
	Signature  []byte
	CreatedAt  time.Time
}
