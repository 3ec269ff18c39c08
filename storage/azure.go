package storage

import (
	"context"
	"errors"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/brainydb/brainy/errs"
)

// AzureAdapter stores blobs in an Azure Blob Storage container. Unlike the
// S3/GCS adapters it wraps the concrete SDK client directly rather than a
// narrow interface: azblob.Client has no exported constructor-friendly
// interface to target, so tests exercise it through the adapters above and
// treat this one as integration-only.
type AzureAdapter struct {
	client        *azblob.Client
	containerName string
	concurrency   int
}

// NewAzureAdapter builds an Azure Blob-backed adapter from a shared-key
// credential (account name + key).
func NewAzureAdapter(accountName, accountKey, containerName string, concurrency int) (*AzureAdapter, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, errs.Storagef(false, err, "build Azure shared key credential")
	}
	serviceURL := "https://" + accountName + ".blob.core.windows.net/"
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, errs.Storagef(true, err, "create Azure blob client")
	}
	if concurrency <= 0 {
		concurrency = 100
	}
	return &AzureAdapter{client: client, containerName: containerName, concurrency: concurrency}, nil
}

func (a *AzureAdapter) Read(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errNilAdapterPath
	}
	resp, err := a.client.DownloadStream(ctx, a.containerName, path, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, errs.NotFoundf("no object at %q", path)
	}
	if err != nil {
		return nil, errs.Storagef(true, err, "download %q", path)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Storagef(true, err, "read body %q", path)
	}
	return data, nil
}

func (a *AzureAdapter) Write(ctx context.Context, path string, data []byte) error {
	if path == "" {
		return errNilAdapterPath
	}
	_, err := a.client.UploadBuffer(ctx, a.containerName, path, data, nil)
	if err != nil {
		return errs.Storagef(true, err, "upload %q", path)
	}
	return nil
}

func (a *AzureAdapter) Delete(ctx context.Context, path string) error {
	_, err := a.client.DeleteBlob(ctx, a.containerName, path, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return errs.Storagef(true, err, "delete %q", path)
	}
	return nil
}

func (a *AzureAdapter) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	pager := a.client.NewListBlobsFlatPager(a.containerName, &container.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errs.Storagef(true, err, "list %q", prefix)
		}
		for _, item := range page.Segment.BlobItems {
			var size int64
			if item.Properties != nil && item.Properties.ContentLength != nil {
				size = *item.Properties.ContentLength
			}
			out = append(out, ObjectInfo{Path: *item.Name, Size: size})
		}
	}
	return out, nil
}

func (a *AzureAdapter) ReadBatch(ctx context.Context, paths []string) (map[string][]byte, error) {
	return boundedEach(ctx, paths, a.Concurrency(), func(ctx context.Context, path string) ([]byte, bool, error) {
		data, err := a.Read(ctx, path)
		if err == nil {
			return data, true, nil
		}
		if errs.IsTransientStorage(err) {
			return nil, false, err
		}
		return nil, false, nil
	})
}

func (a *AzureAdapter) DeleteBatch(ctx context.Context, paths []string) error {
	_, err := boundedEach(ctx, paths, a.Concurrency(), func(ctx context.Context, path string) ([]byte, bool, error) {
		return nil, false, a.Delete(ctx, path)
	})
	return err
}

func (a *AzureAdapter) Concurrency() int { return a.concurrency }

var errAzureNotSupported = errors.New("not supported by the Azure adapter")

// SetLifecyclePolicy is managed via Azure Storage account management
// policies, which operate account-wide rather than through this client;
// callers configure it via the Azure portal/Terraform instead.
func (a *AzureAdapter) SetLifecyclePolicy(_ context.Context, _ string, _ int, _ string) error {
	return errs.Capacityf(errAzureNotSupported, "Azure Blob lifecycle management is account-scoped, not settable per adapter call")
}

// ChangeTier sets a blob's access tier immediately.
func (a *AzureAdapter) ChangeTier(ctx context.Context, path string, tier string) error {
	_, err := a.client.ServiceClient().NewContainerClient(a.containerName).NewBlobClient(path).SetTier(ctx, azblob.AccessTier(tier), nil)
	if err != nil {
		return errs.Storagef(true, err, "change tier for %q", path)
	}
	return nil
}
