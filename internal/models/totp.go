package models

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPIssuer is the issuer name shown in authenticator apps.
const TOTPIssuer = "CPL Edge"

// GenerateTOTPSecret generates a new TOTP secret for an editor account.
func GenerateTOTPSecret(username string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: username,
	})
}

// TOTPQRCode renders the enrollment QR code as a base64-encoded PNG.
func TOTPQRCode(key *otp.Key) (string, error) {
	img, err := key.Image(200, 200)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// VerifyTOTPCode verifies a TOTP code against a secret
func VerifyTOTPCode(secret, code string) bool {
	return totp.Validate(code, secret)
}
