package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/deweblabs/depost/pkg/internal/models"
)

// Vault is the consumed face of the external credential store: one small
// document per principal, fetched and replaced whole.
type Vault interface {
	GetCredentials(ctx context.Context, principal string) (*models.Credential, error)
	SetCredentials(ctx context.Context, principal string, credential models.Credential) error
}

// MemoryVault keeps credentials for the lifetime of the process only.
type MemoryVault struct {
	mu    sync.RWMutex
	items map[string]models.Credential
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{items: make(map[string]models.Credential)}
}

func (v *MemoryVault) GetCredentials(_ context.Context, principal string) (*models.Credential, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if item, ok := v.items[principal]; ok {
		return &item, nil
	}
	return nil, nil
}

func (v *MemoryVault) SetCredentials(_ context.Context, principal string, credential models.Credential) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items[principal] = credential
	return nil
}

// FileVault keeps the credential documents in a single local JSON file,
// keyed by principal, with the legacy shortened field names on disk.
type FileVault struct {
	mu   sync.Mutex
	path string
}

func NewFileVault(path string) *FileVault {
	return &FileVault{path: path}
}

func (v *FileVault) GetCredentials(_ context.Context, principal string) (*models.Credential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	items, err := v.load()
	if err != nil {
		return nil, err
	}
	if item, ok := items[principal]; ok {
		return &item, nil
	}
	return nil, nil
}

func (v *FileVault) SetCredentials(_ context.Context, principal string, credential models.Credential) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	items, err := v.load()
	if err != nil {
		return err
	}
	items[principal] = credential

	payload, err := jsoniter.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %v", err)
	}
	if err := os.WriteFile(v.path, payload, 0o600); err != nil {
		return fmt.Errorf("failed to save credentials: %v", err)
	}

	log.Debug().Str("principal", principal).Msg("Stored credentials into the vault.")

	return nil
}

func (v *FileVault) load() (map[string]models.Credential, error) {
	items := make(map[string]models.Credential)

	payload, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		return items, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %v", err)
	}

	if err := jsoniter.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %v", err)
	}
	return items, nil
}

// DisplayName resolves what to show for a principal: the vault-stored
// username wins, then the provider display name, then the email local
// part.
func DisplayName(ctx context.Context, vault Vault, principal models.Principal) string {
	if vault != nil {
		if credential, err := vault.GetCredentials(ctx, principal.Email); err == nil && credential != nil {
			if len(credential.Username) > 0 {
				return credential.Username
			}
		}
	}
	if len(principal.DisplayName) > 0 {
		return principal.DisplayName
	}
	return principal.FallbackName()
}
