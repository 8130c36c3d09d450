/*
Copyright 2024 The Blob Mounter Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"golang.org/x/sync/errgroup"
)

// copyPollInterval is how often AzureStore polls a server-side copy for
// completion. Azure Blob Storage copies of same-account blobs usually
// complete synchronously, but the API is asynchronous by contract.
const copyPollInterval = 200 * time.Millisecond

// copyPollTimeout bounds how long AzureStore waits for a copy.
const copyPollTimeout = 5 * time.Minute

// deleteFanOut bounds concurrent deletes issued by DeletePrefix.
const deleteFanOut = 8

// AzureStore implements Store against an Azure Blob Storage container,
// following the client-construction idiom of
// Azure-azure-storage-azcopy's common.CreateContainerClient.
type AzureStore struct {
	container *container.Client
	cred      *blob.SharedKeyCredential
}

// NewAzureStore builds an AzureStore from an account name/key pair and a
// container URL (https://<account>.blob.core.windows.net/<container>).
func NewAzureStore(containerURL, accountName, accountKey string) (*AzureStore, error) {
	cred, err := blob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("blobstore: building shared key credential: %w", err)
	}
	c, err := container.NewClientWithSharedKeyCredential(containerURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: building container client: %w", err)
	}
	return &AzureStore{container: c, cred: cred}, nil
}

func remoteErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return &RemoteError{StatusCode: respErr.StatusCode, Op: op, Key: key, Err: err}
	}
	return &RemoteError{StatusCode: 0, Op: op, Key: key, Err: err}
}

func (s *AzureStore) Probe(ctx context.Context) error {
	_, err := s.container.GetProperties(ctx, nil)
	return remoteErr("probe", "", err)
}

func (s *AzureStore) ListByHierarchy(ctx context.Context, prefix string) ([]Item, error) {
	var items []Item
	p := prefix
	pager := s.container.NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{
		Prefix: &p,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, remoteErr("list_by_hierarchy", prefix, err)
		}
		for _, bp := range page.Segment.BlobPrefixes {
			if bp.Name == nil {
				continue
			}
			items = append(items, Item{
				Name:        leafOf(*bp.Name),
				FullPath:    *bp.Name,
				IsDirectory: true,
			})
		}
		for _, bi := range page.Segment.BlobItems {
			if bi.Name == nil {
				continue
			}
			items = append(items, itemFromBlobItem(*bi.Name, bi.Properties))
		}
	}
	return items, nil
}

func (s *AzureStore) ListAll(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := prefix
	pager := s.container.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix: &p,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, remoteErr("list_all", prefix, err)
		}
		for _, bi := range page.Segment.BlobItems {
			if bi.Name != nil {
				keys = append(keys, *bi.Name)
			}
		}
	}
	return keys, nil
}

func (s *AzureStore) GetProperties(ctx context.Context, key string) (Item, error) {
	resp, err := s.container.NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return Item{}, &RemoteError{StatusCode: http.StatusNotFound, Op: "get_properties", Key: key, Err: ErrNotFound}
		}
		return Item{}, remoteErr("get_properties", key, err)
	}
	item := Item{Name: leafOf(key), FullPath: key}
	if resp.ContentLength != nil {
		item.Size = *resp.ContentLength
	}
	if resp.LastModified != nil {
		item.LastModified = resp.LastModified.UTC()
	}
	if resp.ETag != nil {
		item.ETag = string(*resp.ETag)
	}
	return item, nil
}

func (s *AzureStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.container.NewBlobClient(key).DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, &RemoteError{StatusCode: http.StatusNotFound, Op: "download", Key: key, Err: ErrNotFound}
		}
		return nil, remoteErr("download", key, err)
	}
	return resp.Body, nil
}

func (s *AzureStore) Upload(ctx context.Context, key string, src io.Reader, overwrite bool) error {
	opts := &blockblob.UploadStreamOptions{}
	if !overwrite {
		opts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		}
	}
	_, err := s.container.NewBlockBlobClient(key).UploadStream(ctx, src, opts)
	return remoteErr("upload", key, err)
}

func (s *AzureStore) Copy(ctx context.Context, src, dst string) error {
	srcClient := s.container.NewBlobClient(src)
	srcURL, err := srcClient.GetSASURL(sas.BlobPermissions{Read: true}, time.Now().Add(copyPollTimeout), nil)
	if err != nil {
		return fmt.Errorf("blobstore: copy %q -> %q: building source SAS: %w", src, dst, err)
	}
	dstClient := s.container.NewBlobClient(dst)
	resp, err := dstClient.StartCopyFromURL(ctx, srcURL, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) || bloberror.HasCode(err, bloberror.CannotVerifyCopySource) {
			return &RemoteError{StatusCode: http.StatusNotFound, Op: "copy", Key: src, Err: ErrNotFound}
		}
		return remoteErr("copy", src, err)
	}
	if resp.CopyStatus == nil || *resp.CopyStatus == blob.CopyStatusTypeSuccess {
		return nil
	}
	deadline := time.Now().Add(copyPollTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(copyPollInterval)
		props, err := dstClient.GetProperties(ctx, nil)
		if err != nil {
			return remoteErr("copy", dst, err)
		}
		if props.CopyStatus == nil {
			return nil
		}
		switch *props.CopyStatus {
		case blob.CopyStatusTypeSuccess:
			return nil
		case blob.CopyStatusTypeFailed, blob.CopyStatusTypeAborted:
			return fmt.Errorf("blobstore: copy %q -> %q failed: status %s", src, dst, *props.CopyStatus)
		}
	}
	return fmt.Errorf("blobstore: copy %q -> %q: timed out waiting for completion", src, dst)
}

func (s *AzureStore) Delete(ctx context.Context, key string) error {
	_, err := s.container.NewBlobClient(key).Delete(ctx, nil)
	if err != nil && bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil
	}
	return remoteErr("delete", key, err)
}

func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.GetProperties(ctx, key)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// DeletePrefix deletes every key under prefix with bounded concurrency,
// used by the adapter's recursive directory delete (Rmdir); a directory
// move deletes its source keys one by one after copying them. It is
// not part of the Store interface because it
// is a convenience built from ListAll + Delete, not a primitive the
// remote API offers.
func DeletePrefix(ctx context.Context, s Store, prefix string) error {
	keys, err := s.ListAll(ctx, prefix)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteFanOut)
	for _, k := range keys {
		k := k
		g.Go(func() error {
			return s.Delete(ctx, k)
		})
	}
	return g.Wait()
}

func itemFromBlobItem(name string, props *container.BlobProperties) Item {
	item := Item{Name: leafOf(name), FullPath: name}
	if props == nil {
		return item
	}
	if props.ContentLength != nil {
		item.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		item.LastModified = props.LastModified.UTC()
	}
	if props.ETag != nil {
		item.ETag = string(*props.ETag)
	}
	return item
}

func leafOf(key string) string {
	s := key
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}
