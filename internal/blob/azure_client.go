package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azbl "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

// realAzureClient wraps the official Azure SDK client to satisfy AzureBlobAPI.
type realAzureClient struct {
	client     *azblob.Client
	container  string
	accountURL string
	// sharedKey is non-nil when shared-key auth is configured; it is required
	// for SAS issuance.
	sharedKey *azblob.SharedKeyCredential
}

// newRealAzureClient creates a real Azure Blob client. If accountKey is
// non-empty it uses shared-key auth (which also enables SAS grants);
// otherwise it falls back to DefaultAzureCredential.
func newRealAzureClient(accountURL, account, accountKey, container string) (*realAzureClient, error) {
	if accountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(account, accountKey)
		if err != nil {
			return nil, fmt.Errorf("creating Azure shared key credential: %w", err)
		}
		client, err := azblob.NewClientWithSharedKeyCredential(accountURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("creating Azure Blob client with shared key: %w", err)
		}
		return &realAzureClient{client: client, container: container, accountURL: accountURL, sharedKey: cred}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure credential: %w", err)
	}
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure Blob client: %w", err)
	}
	return &realAzureClient{client: client, container: container, accountURL: accountURL}, nil
}

func (c *realAzureClient) Upload(ctx context.Context, blobName string, reader io.Reader, contentType string) error {
	_, err := c.client.UploadStream(ctx, c.container, blobName, reader, &azblob.UploadStreamOptions{
		HTTPHeaders: &azbl.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	})
	return err
}

func (c *realAzureClient) Download(ctx context.Context, blobName string) (io.ReadCloser, int64, string, error) {
	resp, err := c.client.DownloadStream(ctx, c.container, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, 0, "", fmt.Errorf("%q: %w", blobName, ErrNotExist)
		}
		return nil, 0, "", err
	}
	var size int64
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	var contentType string
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return resp.Body, size, contentType, nil
}

func (c *realAzureClient) Delete(ctx context.Context, blobName string) error {
	_, err := c.client.DeleteBlob(ctx, c.container, blobName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return err
	}
	return nil
}

func (c *realAzureClient) Exists(ctx context.Context, blobName string) (bool, error) {
	blobClient := c.client.ServiceClient().NewContainerClient(c.container).NewBlobClient(blobName)
	_, err := blobClient.GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return false, nil
	}
	return false, err
}

func (c *realAzureClient) SignedPutURL(blobName string, expires time.Time) (string, error) {
	if c.sharedKey == nil {
		return "", fmt.Errorf("SAS grants require shared-key credentials")
	}

	perms := sas.BlobPermissions{Create: true, Write: true}
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		ExpiryTime:    expires,
		Permissions:   perms.String(),
		ContainerName: c.container,
		BlobName:      blobName,
	}

	query, err := values.SignWithSharedKey(c.sharedKey)
	if err != nil {
		return "", fmt.Errorf("signing SAS: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s?%s", c.accountURL, c.container, blobName, query.Encode()), nil
}
