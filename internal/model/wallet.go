package model

// KeyFile represents the on-disk key backup. Only Address and QR are readable
// without the password; CipherText is the ciphertext1... form of the encrypted
// private key.
type KeyFile struct {
	Network    string `json:"network"`
	Address    string `json:"address"`
	QR         string `json:"QR"`
	CipherText string `json:"cipherText"`
	CreatedAt  string `json:"createdAt"`
}

// GenerateResponse represents response for POST /agent/generate
type GenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Address string `json:"address,omitempty"`
}

// AddressResponse represents response for GET /agent/address
type AddressResponse struct {
	Network string `json:"network"`
	Address string `json:"address"`
	QR      string `json:"QR,omitempty"`
}
