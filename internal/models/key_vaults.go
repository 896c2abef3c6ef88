package models

// Well-known key vault entries. Providers may store additional keys.
const (
	KeyVaultAPIKey          = "apiKey"
	KeyVaultBaseURL         = "baseURL"
	KeyVaultEndpoint        = "endpoint"
	KeyVaultAccessKeyID     = "accessKeyId"
	KeyVaultSecretAccessKey = "secretAccessKey"
	KeyVaultSessionToken    = "sessionToken"
	KeyVaultRegion          = "region"
)

// KeyVaults is the secret bundle of one provider: API keys, endpoints and
// cloud access key pairs. It is only ever persisted through a keyvault.Codec.
type KeyVaults map[string]string

func (k KeyVaults) APIKey() string          { return k[KeyVaultAPIKey] }
func (k KeyVaults) BaseURL() string         { return k[KeyVaultBaseURL] }
func (k KeyVaults) Endpoint() string        { return k[KeyVaultEndpoint] }
func (k KeyVaults) AccessKeyID() string     { return k[KeyVaultAccessKeyID] }
func (k KeyVaults) SecretAccessKey() string { return k[KeyVaultSecretAccessKey] }

// Clone returns a copy that can be handed out without sharing the map.
func (k KeyVaults) Clone() KeyVaults {
	if k == nil {
		return nil
	}
	out := make(KeyVaults, len(k))
	for key, value := range k {
		out[key] = value
	}
	return out
}
