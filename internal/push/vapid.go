package push

import (
	"log"
	"os"

	"github.com/SherClockHolmes/webpush-go"
)

// VAPIDKeys is the application server key pair used to sign push requests.
// The public half is what clients pass to the push service when subscribing.
type VAPIDKeys struct {
	Public  string
	Private string
}

// LoadVAPIDKeys reads the key pair from the environment, generating a fresh
// pair when absent. Generated keys are only logged; they must be added to the
// environment to survive a restart, otherwise existing subscriptions stop
// validating.
func LoadVAPIDKeys() (VAPIDKeys, error) {
	keys := VAPIDKeys{
		Public:  os.Getenv("VAPID_PUBLIC_KEY"),
		Private: os.Getenv("VAPID_PRIVATE_KEY"),
	}
	if keys.Public != "" && keys.Private != "" {
		return keys, nil
	}

	log.Println("VAPID keys not found in environment. Generating new keys...")
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return VAPIDKeys{}, err
	}
	keys.Private = privateKey
	keys.Public = publicKey
	log.Printf("Generated VAPID Keys:\nVAPID_PRIVATE_KEY=%s\nVAPID_PUBLIC_KEY=%s\n(Add these to your .env file to persist them)", privateKey, publicKey)
	return keys, nil
}
