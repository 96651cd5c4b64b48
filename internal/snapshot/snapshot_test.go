package snapshot

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "lf-playbook/internal/db"
	"lf-playbook/internal/db/repository"
	"lf-playbook/internal/domain"
	"lf-playbook/internal/playbook"
)

const (
	account = "111122223333"
	region  = "us-east-1"
)

func sampleState(t *testing.T) *playbook.State {
	t.Helper()
	s := playbook.NewState()
	db, err := domain.NewDatabase(account, region, "amz")
	require.NoError(t, err)
	tag, err := domain.NewTag(account, "admin", "y")
	require.NoError(t, err)
	require.NoError(t, s.Resources.Add(db))
	require.NoError(t, s.Resources.Add(tag))

	p, err := domain.NewIAMUser("arn:aws:iam::111122223333:user/alice")
	require.NoError(t, err)
	g, err := domain.NewGrant(p, tag, domain.PermSuperDatabase)
	require.NoError(t, err)
	require.NoError(t, s.Grants.Add(g))
	a, err := domain.NewTagAttachment(db, tag)
	require.NoError(t, err)
	require.NoError(t, s.TagAttachments.Add(a))
	return s
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestKey(t *testing.T) {
	assert.Equal(t, "deployed-111122223333-us-east-1.json", Key(account, region))
}

func TestStores_GetPut(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	stores := map[string]Store{
		"file":   NewFileStore(t.TempDir()),
		"s3":     NewS3Store(fake, "state", "lf"),
		"sqlite": NewSQLiteStore(repository.NewSnapshotRepo(internaldb.OpenTestSQLite(t))),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.Get(ctx, "k.json")
			var nf *domain.NotFoundError
			require.ErrorAs(t, err, &nf)

			require.NoError(t, store.Put(ctx, "k.json", []byte(`{"a":1}`)))
			require.NoError(t, store.Put(ctx, "k.json", []byte(`{"a":2}`)))
			got, err := store.Get(ctx, "k.json")
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(got))
		})
	}
	assert.Contains(t, fake.objects, "state/lf/k.json")
}

func TestFileStore_WritesIntoDir(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.Put(context.Background(), Key(account, region), []byte("{}")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, Key(account, region), entries[0].Name())
}

func TestSnapshots_LoadMissingIsEmpty(t *testing.T) {
	snaps := New(NewFileStore(t.TempDir()), nil)
	state, err := snaps.Load(context.Background(), account, region)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Resources.Len())
	assert.Equal(t, 0, state.Grants.Len())
}

func TestSnapshots_SaveLoad(t *testing.T) {
	store := NewFileStore(t.TempDir())
	snaps := New(store, nil)
	ctx := context.Background()
	state := sampleState(t)

	digest, err := snaps.Save(ctx, account, region, state)
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	data, err := store.Get(ctx, Key(account, region))
	require.NoError(t, err)
	require.NoError(t, Validate(data))

	got, err := snaps.Load(ctx, account, region)
	require.NoError(t, err)
	assert.ElementsMatch(t, state.Resources.IDs(), got.Resources.IDs())
	assert.ElementsMatch(t, state.Grants.IDs(), got.Grants.IDs())
	assert.ElementsMatch(t, state.TagAttachments.IDs(), got.TagAttachments.IDs())

	again, err := snaps.Save(ctx, account, region, got)
	require.NoError(t, err)
	assert.NotEmpty(t, again)
}

func TestSnapshots_LoadRejectsForeignSnapshot(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()
	data, err := playbook.Encode(sampleState(t), playbook.NewMetadata("999999999999", region, snapsNow()))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, Key(account, region), data))

	_, err = New(store, nil).Load(ctx, account, region)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "belongs to 999999999999/us-east-1")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"empty", `{}`, true},
		{"bad account", `{"account_id":"12"}`, false},
		{"unknown res_type", `{"resources":{"x":{"res_type":"Catalog"}}}`, false},
		{"missing res_type", `{"resources":{"x":{"name":"amz"}}}`, false},
		{"grant without permission", `{"grants":{"g":{"principal":{"principal_type":"IamUser"},"resource":{"res_type":"Tag"}}}}`, false},
		{"attachment tag not a tag", `{"tag_attachments":{"a":{"resource":{"res_type":"Database"},"tag":{"res_type":"Database"}}}}`, false},
		{"attachment", `{"tag_attachments":{"a":{"resource":{"res_type":"Database"},"tag":{"res_type":"Tag"}}}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.doc))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSnapshots_LoadRejectsSchemaViolation(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, Key(account, region), []byte(`{"resources":{"x":{"res_type":"Catalog"}}}`)))

	_, err := New(store, nil).Load(ctx, account, region)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, Options{Backend: BackendS3, Bucket: "state", AWS: aws.Config{Region: region}})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)

	store, err = Open(ctx, Options{Backend: BackendSQLite, DB: internaldb.OpenTestSQLite(t)})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)

	for _, opts := range []Options{
		{Backend: BackendS3},
		{Backend: BackendGCS},
		{Backend: BackendAzure},
		{Backend: BackendAzure, Bucket: "c"},
		{Backend: BackendSQLite},
	} {
		_, err := Open(ctx, opts)
		var ve *domain.ValidationError
		assert.ErrorAs(t, err, &ve, opts.Backend)
	}

	_, err = Open(ctx, Options{Backend: "ftp"})
	var uv *domain.UnknownVariantError
	require.ErrorAs(t, err, &uv)
}

func TestNewS3Client_Endpoint(t *testing.T) {
	ctx := context.Background()

	plain := newS3Client(aws.Config{Region: region}, S3Endpoint{})
	assert.Nil(t, plain.Options().BaseEndpoint)
	assert.False(t, plain.Options().UsePathStyle)

	minio := newS3Client(aws.Config{Region: region}, S3Endpoint{
		URL:             "http://localhost:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	opts := minio.Options()
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://localhost:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	creds, err := opts.Credentials.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "key", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}

func snapsNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
