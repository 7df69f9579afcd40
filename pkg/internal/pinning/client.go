package pinning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	gocache "github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	localCache "github.com/deweblabs/depost/pkg/internal/cache"
	"github.com/deweblabs/depost/pkg/internal/models"
)

const (
	DefaultEndpoint = "https://api.pinata.cloud"
	DefaultGateway  = "https://gateway.pinata.cloud"
)

// HTTPClient talks to a Pinata-compatible pinning API. Blob fetches are
// content-addressed, so successful ones are cached in the shared store.
type HTTPClient struct {
	endpoint   string
	gateway    string
	credential models.Credential
	http       *http.Client
}

func NewHTTPClient(endpoint, gateway string, credential models.Credential) (*HTTPClient, error) {
	if !credential.Complete() {
		return nil, &StoreUnavailableError{
			Op:  "setup",
			Err: fmt.Errorf("missing pinning api key or secret"),
		}
	}
	if len(endpoint) == 0 {
		endpoint = DefaultEndpoint
	}
	if len(gateway) == 0 {
		gateway = DefaultGateway
	}

	return &HTTPClient{
		endpoint:   endpoint,
		gateway:    gateway,
		credential: credential,
		http:       &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (v *HTTPClient) authorize(request *http.Request) {
	request.Header.Set("pinata_api_key", v.credential.APIKey)
	request.Header.Set("pinata_secret_api_key", v.credential.Secret)
}

// Probe checks the credentials against the substrate before they are
// accepted into the vault.
func (v *HTTPClient) Probe(ctx context.Context) error {
	url := fmt.Sprintf("%s/data/testAuthentication", v.endpoint)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	v.authorize(request)

	resp, err := v.http.Do(request)
	if err != nil {
		return &StoreUnavailableError{Op: "probe", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StoreUnavailableError{
			Op:  "probe",
			Err: fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, body),
		}
	}

	return nil
}

func (v *HTTPClient) Pin(ctx context.Context, name string, blob []byte, tags map[string]string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to prepare upload: %v", err)
	}
	if _, err := part.Write(blob); err != nil {
		return "", fmt.Errorf("failed to prepare upload: %v", err)
	}

	metadata, err := jsoniter.Marshal(map[string]any{
		"name":      name,
		"keyvalues": tags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize pin metadata: %v", err)
	}
	if err := writer.WriteField("pinataMetadata", string(metadata)); err != nil {
		return "", fmt.Errorf("failed to prepare upload: %v", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to prepare upload: %v", err)
	}

	url := fmt.Sprintf("%s/pinning/pinFileToIPFS", v.endpoint)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	v.authorize(request)

	log.Debug().Str("name", name).Msg("Pinning a blob...")

	resp, err := v.http.Do(request)
	if err != nil {
		return "", fmt.Errorf("failed to pin blob: %v", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read pin response: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, payload)
	}

	var result struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := jsoniter.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("failed to parse pin response: %v", err)
	}

	log.Debug().Str("name", name).Str("id", result.IpfsHash).Msg("Pinned a blob.")

	return result.IpfsHash, nil
}

func (v *HTTPClient) List(ctx context.Context) ([]PinRecord, error) {
	url := fmt.Sprintf("%s/data/pinList?status=pinned&pageLimit=1000", v.endpoint)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	v.authorize(request)

	resp, err := v.http.Do(request)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "list", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "list", Err: err}
	}
	if resp.StatusCode != fiber.StatusOK {
		return nil, &StoreUnavailableError{
			Op:  "list",
			Err: fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, payload),
		}
	}

	var result struct {
		Rows []struct {
			IpfsPinHash string `json:"ipfs_pin_hash"`
			DatePinned  string `json:"date_pinned"`
			Metadata    struct {
				Name      string            `json:"name"`
				Keyvalues map[string]string `json:"keyvalues"`
			} `json:"metadata"`
		} `json:"rows"`
	}
	if err := jsoniter.Unmarshal(payload, &result); err != nil {
		return nil, &StoreUnavailableError{
			Op:  "list",
			Err: fmt.Errorf("failed to parse listing: %v", err),
		}
	}

	records := make([]PinRecord, 0, len(result.Rows))
	for _, row := range result.Rows {
		pinnedAt, _ := time.Parse(time.RFC3339Nano, row.DatePinned)
		tags := row.Metadata.Keyvalues
		if tags == nil {
			tags = map[string]string{}
		}
		records = append(records, PinRecord{
			ID:       row.IpfsPinHash,
			Name:     row.Metadata.Name,
			Tags:     tags,
			PinnedAt: pinnedAt,
		})
	}

	log.Debug().Int("count", len(records)).Msg("Listed pinned blobs.")

	return records, nil
}

func (v *HTTPClient) Fetch(ctx context.Context, id string) ([]byte, error) {
	cacheKey := fmt.Sprintf("pinned-blob#%s", id)
	if localCache.S != nil {
		cacheManager := gocache.New[any](localCache.S)
		if cached, err := cacheManager.Get(ctx, cacheKey); err == nil {
			if blob, ok := cached.([]byte); ok {
				return blob, nil
			}
		}
	}

	url := fmt.Sprintf("%s/ipfs/%s", v.gateway, id)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pinned blob: %v", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pinned blob: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, payload)
	}

	if localCache.S != nil {
		cacheManager := gocache.New[any](localCache.S)
		_ = cacheManager.Set(ctx, cacheKey, payload, store.WithCost(int64(len(payload))))
	}

	return payload, nil
}

func (v *HTTPClient) Unpin(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/pinning/unpin/%s", v.endpoint, id)
	request, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	v.authorize(request)

	resp, err := v.http.Do(request)
	if err != nil {
		return fmt.Errorf("failed to unpin blob: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, body)
	}

	log.Debug().Str("id", id).Msg("Unpinned a blob.")

	return nil
}
