// Package downloadtest provides in-memory implementations of the download
// repositories and object store for tests.
package downloadtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
)

// CodeRepo is an in-memory biz.CodeRepo. MarkRedeemed is a compare-and-swap
// under the repo lock, mirroring the conditional UPDATE of the SQL repo.
type CodeRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*biz.DownloadCode
	byCode map[string]int64

	// CreateErr, when set, is returned by Create and CreateBatch
	CreateErr error
	// FailChunk makes CreateBatch fail every chunk that contains this code
	FailChunk string
	// ChunkSize is the CreateBatch chunk size, 50 when zero
	ChunkSize int
}

// NewCodeRepo returns an empty repo
func NewCodeRepo() *CodeRepo {
	return &CodeRepo{
		byID:   make(map[int64]*biz.DownloadCode),
		byCode: make(map[string]int64),
	}
}

func (r *CodeRepo) Create(_ context.Context, code *biz.DownloadCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	return r.insertLocked(code)
}

func (r *CodeRepo) insertLocked(code *biz.DownloadCode) error {
	if _, dup := r.byCode[code.Code]; dup {
		return biz.ErrCodeCollision
	}
	r.nextID++
	code.ID = r.nextID
	cp := *code
	r.byID[cp.ID] = &cp
	r.byCode[cp.Code] = cp.ID
	return nil
}

func (r *CodeRepo) CreateBatch(_ context.Context, codes []*biz.DownloadCode) (int, []biz.BatchFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return 0, nil, r.CreateErr
	}

	size := r.ChunkSize
	if size <= 0 {
		size = 50
	}
	inserted := 0
	var failures []biz.BatchFailure
	for start := 0; start < len(codes); start += size {
		chunk := codes[start:min(start+size, len(codes))]
		values := make([]string, len(chunk))
		poisoned := false
		for i, c := range chunk {
			values[i] = c.Code
			_, dup := r.byCode[c.Code]
			poisoned = poisoned || dup || (r.FailChunk != "" && c.Code == r.FailChunk)
		}
		if poisoned {
			failures = append(failures, biz.BatchFailure{Codes: values, Err: fmt.Errorf("chunk %d rejected", start/size)})
			continue
		}
		for _, c := range chunk {
			_ = r.insertLocked(c)
		}
		inserted += len(chunk)
	}
	return inserted, failures, nil
}

func (r *CodeRepo) GetByCode(_ context.Context, code string) (*biz.DownloadCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byCode[code]
	if !ok {
		return nil, biz.ErrInvalidCode
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *CodeRepo) GetByID(_ context.Context, id int64) (*biz.DownloadCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, biz.ErrInvalidCode
	}
	cp := *c
	return &cp, nil
}

func (r *CodeRepo) MarkRedeemed(_ context.Context, id int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || c.Status(now) != biz.StatusActive {
		return false, nil
	}
	c.IsUsed = true
	c.UsedAt = &now
	c.DownloadCount++
	return true, nil
}

// Put stores code as-is, bypassing issuance. Used to seed expired or exhausted codes.
func (r *CodeRepo) Put(code biz.DownloadCode) *biz.DownloadCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.insertLocked(&code)
	return &code
}

// Snapshot returns a copy of the stored code
func (r *CodeRepo) Snapshot(id int64) biz.DownloadCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.byID[id]
}

// Len returns the number of stored codes
func (r *CodeRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// LogRepo is an in-memory biz.DownloadLogRepo
type LogRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []*biz.DownloadLogEntry
	codes   *CodeRepo

	// AppendErr, when set, makes every Append fail
	AppendErr error
}

// NewLogRepo returns an empty log. codes, if not nil, is used to join file names.
func NewLogRepo(codes *CodeRepo) *LogRepo {
	return &LogRepo{codes: codes}
}

func (r *LogRepo) Append(_ context.Context, entry *biz.DownloadLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AppendErr != nil {
		return r.AppendErr
	}
	r.nextID++
	cp := *entry
	cp.ID = r.nextID
	entry.ID = cp.ID
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *LogRepo) List(_ context.Context, filter biz.LogFilter) ([]*biz.DownloadLogView, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*biz.DownloadLogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if e := r.entries[i]; !filter.SuccessOnly || e.Success {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := min(start+filter.Limit, len(matched))

	views := make([]*biz.DownloadLogView, 0, end-start)
	for _, e := range matched[start:end] {
		v := &biz.DownloadLogView{
			ID:           e.ID,
			Timestamp:    e.Timestamp,
			UserEmail:    e.UserEmail,
			Success:      e.Success,
			ErrorMessage: e.ErrorMessage,
			LocationRaw:  e.Location.Encode(),
			IPAddress:    e.IPAddress,
			FileSize:     e.FileSize,
		}
		if r.codes != nil && e.CodeID != nil {
			if c, err := r.codes.GetByID(context.Background(), *e.CodeID); err == nil {
				v.FileName, v.Code = c.FileName, c.Code
			}
		}
		views = append(views, v)
	}
	return views, total, nil
}

func (r *LogRepo) Stats(_ context.Context) (biz.LogStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s biz.LogStats
	users := make(map[string]struct{})
	for _, e := range r.entries {
		s.TotalAttempts++
		if e.Success {
			s.SuccessfulDownloads++
		} else {
			s.FailedAttempts++
		}
		if e.UserEmail != "" {
			users[e.UserEmail] = struct{}{}
		}
		if s.LastActivity == nil || e.Timestamp.After(*s.LastActivity) {
			ts := e.Timestamp
			s.LastActivity = &ts
		}
	}
	s.UniqueUsers = int64(len(users))
	return s, nil
}

func (r *LogRepo) Get(_ context.Context, id int64) (*biz.DownloadLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, biz.ErrLogNotFound
}

func (r *LogRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return biz.ErrLogNotFound
}

// Entries returns a copy of every stored entry in insertion order
func (r *LogRepo) Entries() []biz.DownloadLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]biz.DownloadLogEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// AdminLogRepo is an in-memory biz.AdminLogRepo
type AdminLogRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []*biz.AdminLogEntry

	// AppendErr, when set, makes every Append fail
	AppendErr error
}

// NewAdminLogRepo returns an empty admin log
func NewAdminLogRepo() *AdminLogRepo {
	return &AdminLogRepo{}
}

func (r *AdminLogRepo) Append(_ context.Context, entry *biz.AdminLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AppendErr != nil {
		return r.AppendErr
	}
	r.nextID++
	cp := *entry
	cp.ID = r.nextID
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *AdminLogRepo) List(_ context.Context, limit, offset int) ([]*biz.AdminLogEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := len(r.entries)
	start := min(offset, total)
	end := min(start+limit, total)

	out := make([]*biz.AdminLogEntry, 0, end-start)
	for i := total - 1 - start; i > total-1-end; i-- {
		cp := *r.entries[i]
		out = append(out, &cp)
	}
	return out, int64(total), nil
}

// Entries returns a copy of every stored entry in insertion order
func (r *AdminLogRepo) Entries() []biz.AdminLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]biz.AdminLogEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// Actions returns the action of every stored entry in insertion order
func (r *AdminLogRepo) Actions() []string {
	entries := r.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

// ObjectStore is an in-memory biz.ObjectStore
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string]object

	// Err, when set, is returned by every operation
	Err error
	// Now stamps stored objects, time.Now when nil
	Now func() time.Time
}

// NewObjectStore returns an empty store
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string]object)}
}

// Add stores data under key with the given modification time
func (s *ObjectStore) Add(key string, data []byte, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: data, contentType: "application/octet-stream", modified: modified}
}

// Remove deletes key
func (s *ObjectStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
}

// Keys returns the stored keys, sorted
func (s *ObjectStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *ObjectStore) info(key string, o object) biz.StoredObject {
	return biz.StoredObject{Key: key, Size: int64(len(o.data)), ContentType: o.contentType, LastModified: o.modified}
}

func (s *ObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (biz.StoredObject, error) {
	if s.Err != nil {
		return biz.StoredObject{}, s.Err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return biz.StoredObject{}, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o := object{data: data, contentType: contentType, modified: now()}
	s.objects[key] = o
	return s.info(key, o), nil
}

func (s *ObjectStore) Head(_ context.Context, key string) (biz.StoredObject, error) {
	if s.Err != nil {
		return biz.StoredObject{}, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	if !ok {
		return biz.StoredObject{}, biz.ErrFileNotFound
	}
	return s.info(key, o), nil
}

func (s *ObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, biz.StoredObject, error) {
	info, err := s.Head(ctx, key)
	if err != nil {
		return nil, biz.StoredObject{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return io.NopCloser(bytes.NewReader(s.objects[key].data)), info, nil
}

func (s *ObjectStore) List(_ context.Context, prefix string) ([]biz.StoredObject, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []biz.StoredObject
	for k, o := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, s.info(k, o))
		}
	}
	return out, nil
}

func (s *ObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, error) {
	if _, err := s.Head(ctx, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://objects.test/%s?expires=%d&name=%s", key, int(ttl.Seconds()), downloadName), nil
}

// Notifier records notifications instead of sending them
type Notifier struct {
	mu   sync.Mutex
	sent []biz.CodeNotification

	// Err, when set, is returned by every call after recording it
	Err error
}

func (n *Notifier) NotifyCodeIssued(_ context.Context, msg biz.CodeNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.Err
}

// Sent returns the recorded notifications
func (n *Notifier) Sent() []biz.CodeNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]biz.CodeNotification(nil), n.sent...)
}

// SequenceSource yields the given codes in order, then repeats the last one
type SequenceSource struct {
	mu    sync.Mutex
	codes []string
	next  int
}

// NewSequenceSource returns a source over codes
func NewSequenceSource(codes ...string) *SequenceSource {
	return &SequenceSource{codes: codes}
}

func (s *SequenceSource) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.next, len(s.codes)-1)
	s.next++
	return s.codes[i], nil
}
