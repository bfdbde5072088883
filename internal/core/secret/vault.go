package secret

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultProvider reads service secrets from a KV v2 mount.
type VaultProvider struct {
	client *vault.Client
	mount  string
	path   string
}

// NewVaultProvider connects to addr with a static token.
func NewVaultProvider(addr, token, mount, path string) (*VaultProvider, error) {
	cfg := vault.DefaultConfig()
	cfg.Address = addr
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault config: %w", cfg.Error)
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	client.SetToken(token)

	if strings.TrimSpace(mount) == "" {
		mount = "secret"
	}
	return &VaultProvider{client: client, mount: mount, path: strings.Trim(path, "/")}, nil
}

// GetSecrets returns the requested keys that exist at the provider path.
// Missing keys are omitted rather than reported.
func (p *VaultProvider) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	secret, err := p.client.KVv2(p.mount).Get(ctx, p.path)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", p.mount, p.path, err)
	}

	out := make(map[string]string, len(keys))
	if secret == nil || secret.Data == nil {
		return out, nil
	}
	for _, key := range keys {
		raw, ok := secret.Data[key]
		if !ok {
			continue
		}
		if value, ok := raw.(string); ok && value != "" {
			out[key] = value
		}
	}
	return out, nil
}
