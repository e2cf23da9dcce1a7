package helpers

import gonanoid "github.com/matoous/go-nanoid/v2"

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const length = 16

// NewRequestID is the X-Request-ID generator.
func NewRequestID() string {
	id, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		return ""
	}
	return id
}
