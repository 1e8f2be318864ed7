package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	coreconfig "github.com/serikovn/nexpr-update/core/config"
	"github.com/serikovn/nexpr-update/internal/storage"
)

type memUploader struct {
	objects map[string][]byte
	failOn  string
}

func (m *memUploader) Upload(_ context.Context, key string, data []byte) error {
	if key == m.failOn {
		return errors.New("bucket unavailable")
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func TestSnapshotUploadsExistingCollections(t *testing.T) {
	backend, err := storage.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	ctx := context.Background()
	if err := backend.Write(ctx, "problems.json", []byte(`[]`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := backend.Write(ctx, "users.json", []byte(`[1,2]`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	up := &memUploader{}
	s := NewSnapshotter(backend, up, "problems.json", "subscribers.json", "users.json")
	s.now = func() time.Time { return time.Date(2025, 9, 7, 3, 0, 0, 0, time.FixedZone("MSK", 3*3600)) }

	rep, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Stamp != "20250907T000000Z" {
		t.Fatalf("stamp = %q", rep.Stamp)
	}
	if len(rep.Uploaded) != 2 || len(rep.Skipped) != 1 || rep.Skipped[0] != "subscribers.json" {
		t.Fatalf("report = %+v", rep)
	}
	if got := string(up.objects["snapshots/20250907T000000Z/users.json"]); got != "[1,2]" {
		t.Fatalf("users object = %q", got)
	}
}

func TestSnapshotStopsOnUploadFailure(t *testing.T) {
	backend, err := storage.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	ctx := context.Background()
	_ = backend.Write(ctx, "a", []byte(`{}`))
	_ = backend.Write(ctx, "b", []byte(`{}`))

	s := NewSnapshotter(backend, nil, "a")
	if _, err := s.Run(ctx); err == nil {
		t.Fatal("missing uploader must fail")
	}

	up := &memUploader{}
	s = NewSnapshotter(backend, up, "a", "b")
	s.now = func() time.Time { return time.Unix(0, 0) }
	up.failOn = ObjectKey(Stamp(s.now()), "a")
	if _, err := s.Run(ctx); err == nil {
		t.Fatal("expected upload error")
	}
	if len(up.objects) != 0 {
		t.Fatalf("objects = %v", up.objects)
	}
}

func TestObjectKey(t *testing.T) {
	cases := map[string]string{
		"problems.json":        "snapshots/S/problems.json",
		"subscribers":          "snapshots/S/subscribers.json",
		"/var/data/users.json": "snapshots/S/users.json",
	}
	for in, want := range cases {
		if got := ObjectKey("S", in); got != want {
			t.Fatalf("ObjectKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateSpec(t *testing.T) {
	for _, ok := range []string{"@daily", "0 3 * * *", "*/15 * * * *"} {
		if err := ValidateSpec(ok); err != nil {
			t.Fatalf("%q: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "every night", "0 0 3 * * *"} {
		if ValidateSpec(bad) == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

type countingRunner struct{ runs chan struct{} }

func (r countingRunner) Run(context.Context) (Report, error) {
	select {
	case r.runs <- struct{}{}:
	default:
	}
	return Report{}, nil
}

func TestSchedulerStartStop(t *testing.T) {
	r := countingRunner{runs: make(chan struct{}, 1)}
	s, err := NewScheduler("@every 10ms", nil, r)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Start()
	select {
	case <-r.runs:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled run did not fire")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestMinioUploaderRequiresBucket(t *testing.T) {
	if _, err := NewMinioUploader(coreconfig.MinioConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected error")
	}
	u, err := NewMinioUploader(coreconfig.MinioConfig{Endpoint: "localhost:9000", Bucket: "nexpr"})
	if err != nil || u.bucket != "nexpr" {
		t.Fatalf("uploader = %+v, err = %v", u, err)
	}
}
