package snapshot

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"lf-playbook/internal/domain"
)

// AzureStore keeps snapshots as blobs in an Azure storage container.
type AzureStore struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureStore creates an AzureStore authenticated with an account key.
func NewAzureStore(accountName, accountKey, container, prefix string) (*AzureStore, error) {
	if accountName == "" || accountKey == "" {
		return nil, domain.ErrValidation("azure snapshot store requires an account name and key")
	}
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureStore{client: client, container: container, prefix: prefix}, nil
}

// Get implements Store.
func (s *AzureStore) Get(ctx context.Context, key string) ([]byte, error) {
	name := path.Join(s.prefix, key)
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, domain.ErrNotFound("snapshot az://%s/%s not found", s.container, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get az://%s/%s: %w", s.container, name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read az://%s/%s: %w", s.container, name, err)
	}
	return data, nil
}

// Put implements Store.
func (s *AzureStore) Put(ctx context.Context, key string, data []byte) error {
	name := path.Join(s.prefix, key)
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return fmt.Errorf("put az://%s/%s: %w", s.container, name, err)
	}
	return nil
}
