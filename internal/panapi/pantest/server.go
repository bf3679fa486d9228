// Package pantest runs an in-process fake of the open API for tests. It
// records every call, checks request signatures and bearer tokens, hands
// out S3-style pre-signed slice URLs and reassembles uploaded slices so
// tests can assert on exactly what reached the server.
package pantest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/credential"
	"github.com/dmitrijs2005/isoshare/internal/panapi"
)

// SlicePath is the Call.Path recorded for slice content uploads.
const SlicePath = "/slices"

const sliceBucket = "slices"

// Call is one request as the server saw it.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
	Token  string

	// Set for slice uploads only.
	PreuploadID string
	SliceNo     int
	Size        int
}

type upload struct {
	id       string
	fileName string
	size     int64
	etag     string
	slices   map[int][]byte
	fileID   int64
	polls    int
	done     bool
}

type sliceKey struct {
	fileName string
	sliceNo  int
}

type failure struct {
	code    int
	message string
}

// Server is a fake open API. Configure it before handing its URL to the
// code under test; all methods are safe for concurrent use.
type Server struct {
	URL string

	ts      *httptest.Server
	presign *s3.PresignClient

	mu sync.Mutex

	accessKey string
	secretKey string

	calls []Call

	tokenFn      func(n int) string
	tokensIssued int
	validTokens  map[string]bool
	seenNonces   map[int64]bool
	rejectAll    bool
	rejectNext   int
	failExchange bool

	nextID  int64
	dirs    map[string]int64
	uploads map[string]*upload
	byName  map[string]*upload
	reuse   map[string]int64

	pollStatuses  []string
	syncComplete  bool
	sliceFailures map[sliceKey]int
	transient     map[string]int
	failures      map[string]failure
	shareKeyOnly  bool
	shares        int
}

// NewServer starts a fake that accepts the given credentials. It is closed
// when the test ends.
func NewServer(t *testing.T, accessKey, secretKey string) *Server {
	t.Helper()

	s := &Server{
		accessKey:     accessKey,
		secretKey:     secretKey,
		tokenFn:       func(n int) string { return fmt.Sprintf("token-%04d-opaque", n) },
		validTokens:   map[string]bool{},
		seenNonces:    map[int64]bool{},
		nextID:        1000,
		dirs:          map[string]int64{},
		uploads:       map[string]*upload{},
		byName:        map[string]*upload{},
		reuse:         map[string]int64{},
		pollStatuses:  []string{panapi.UploadStatusCompleted},
		sliceFailures: map[sliceKey]int{},
		transient:     map[string]int{},
		failures:      map[string]failure{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(panapi.PathAccessToken, s.handleAccessToken)
	mux.HandleFunc(panapi.PathFileList, s.authorized(s.handleFileList))
	mux.HandleFunc(panapi.PathMkdir, s.authorized(s.handleMkdir))
	mux.HandleFunc(panapi.PathCreateUpload, s.authorized(s.handleCreateUpload))
	mux.HandleFunc(panapi.PathGetUploadURL, s.authorized(s.handleGetUploadURL))
	mux.HandleFunc(panapi.PathUploadComplete, s.authorized(s.handleUploadComplete))
	mux.HandleFunc(panapi.PathUploadAsyncResult, s.authorized(s.handleUploadResult))
	mux.HandleFunc(panapi.PathShareCreate, s.authorized(s.handleShareCreate))
	mux.HandleFunc(SlicePath+"/", s.handleSlicePut)

	s.ts = httptest.NewServer(mux)
	s.URL = s.ts.URL
	t.Cleanup(s.ts.Close)

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("pantest", "pantest", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.ts.URL)
		o.UsePathStyle = true
	})
	s.presign = s3.NewPresignClient(client)

	return s
}

// Client returns an HTTP client wired to the fake.
func (s *Server) Client() *http.Client { return s.ts.Client() }

// JWT returns an HS256 token expiring at exp, for exercising proactive refresh.
func JWT(exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	signed, err := tok.SignedString([]byte("pantest"))
	if err != nil {
		panic(err)
	}
	return signed
}

// ---- configuration ----

// SetTokenFunc controls the n-th issued access token (1-based).
func (s *Server) SetTokenFunc(fn func(n int) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenFn = fn
}

// ExpireTokens invalidates every token issued so far.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validTokens = map[string]bool{}
}

// RejectNext answers the next n authorized calls with HTTP 401.
func (s *Server) RejectNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectNext = n
}

// RejectAll answers every authorized call with HTTP 401.
func (s *Server) RejectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectAll = true
}

// FailTokenExchange makes the token endpoint refuse every request.
func (s *Server) FailTokenExchange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failExchange = true
}

// AddDirectory pre-creates a directory and returns its id.
func (s *Server) AddDirectory(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mkdirLocked(name)
}

// ReuseETag makes create-upload answer reuse=true for etag.
func (s *Server) ReuseETag(etag string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.reuse[etag] = s.nextID
	return s.nextID
}

// ReuseWithoutFileID makes create-upload answer reuse=true for etag but
// leave file_id out of the response.
func (s *Server) ReuseWithoutFileID(etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reuse[etag] = 0
}

// SetPollStatuses sets the statuses returned by consecutive result polls of
// each upload. The last one repeats.
func (s *Server) SetPollStatuses(statuses ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollStatuses = statuses
}

// CompleteSynchronously makes upload_complete finish the upload itself.
func (s *Server) CompleteSynchronously() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncComplete = true
}

// FailSlice answers PUTs of slice sliceNo of fileName with status.
func (s *Server) FailSlice(fileName string, sliceNo, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sliceFailures[sliceKey{fileName, sliceNo}] = status
}

// FailTransiently answers the next n calls to path with HTTP 503.
func (s *Server) FailTransiently(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transient[path] = n
}

// FailPath answers every call to path with the envelope code and message.
func (s *Server) FailPath(path string, code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{code: code, message: message}
}

// ShareKeyOnly makes share creation return only a share key.
func (s *Server) ShareKeyOnly() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shareKeyOnly = true
}

// ---- inspection ----

// Calls returns every recorded call in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the recorded calls for one path.
func (s *Server) CallsTo(path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Count is len(CallsTo(path)).
func (s *Server) Count(path string) int {
	return len(s.CallsTo(path))
}

// Paths returns the path of every recorded call in order.
func (s *Server) Paths() []string {
	calls := s.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Path
	}
	return out
}

// Content returns the bytes received for fileName, slices joined in order.
func (s *Server) Content(fileName string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byName[fileName]
	if u == nil {
		return nil
	}
	return assemble(u)
}

// SliceNumbers returns the slice numbers received for fileName, sorted.
func (s *Server) SliceNumbers(fileName string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byName[fileName]
	if u == nil {
		return nil
	}
	nums := make([]int, 0, len(u.slices))
	for n := range u.slices {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// FileID returns the id assigned to fileName once its upload finished.
func (s *Server) FileID(fileName string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byName[fileName]
	if u == nil || !u.done {
		return 0, false
	}
	return u.fileID, true
}

// DirectoryID returns the id of a directory by name.
func (s *Server) DirectoryID(name string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.dirs[name]
	return id, ok
}

// ShareURL is the URL the fake builds for a share key.
func (s *Server) ShareURL(key string) string {
	return s.URL + "/s/" + key
}

// ---- handlers ----

func (s *Server) record(r *http.Request, raw []byte) Call {
	c := Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &c.Body)
	}
	if auth := r.Header.Get(common.AuthorizationHeaderName); strings.HasPrefix(auth, common.BearerPrefix) {
		c.Token = strings.TrimPrefix(auth, common.BearerPrefix)
	}
	s.calls = append(s.calls, c)
	return c
}

func writeEnvelope(w http.ResponseWriter, status, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message, "data": data})
}

func ok(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, 0, "ok", data)
}

func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(r, raw)

	if r.Method != http.MethodPost || r.Header.Get(common.PlatformHeaderName) != common.PlatformHeaderValue {
		writeEnvelope(w, http.StatusBadRequest, 400, "bad request", nil)
		return
	}
	if s.failExchange {
		writeEnvelope(w, http.StatusOK, 401, "invalid credentials", nil)
		return
	}

	var req struct {
		AccessKey string `json:"accessKey"`
		SecretKey string `json:"secretKey"`
		Timestamp int64  `json:"timestamp"`
		Nonce     int64  `json:"nonce"`
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, 400, err.Error(), nil)
		return
	}

	want := credential.Sign(s.accessKey, credential.NewSecret(s.secretKey), req.Timestamp, req.Nonce)
	switch {
	case req.AccessKey != s.accessKey || req.SecretKey != s.secretKey:
		writeEnvelope(w, http.StatusOK, 401, "invalid credentials", nil)
		return
	case req.Signature != want:
		writeEnvelope(w, http.StatusOK, 401, "signature mismatch", nil)
		return
	case s.seenNonces[req.Nonce]:
		writeEnvelope(w, http.StatusOK, 401, "nonce reused", nil)
		return
	}
	s.seenNonces[req.Nonce] = true

	s.tokensIssued++
	tok := s.tokenFn(s.tokensIssued)
	s.validTokens[tok] = true
	ok(w, map[string]any{"access_token": tok})
}

// authorized wraps h with token checks, recording and injected failures.
// h runs with s.mu held.
func (s *Server) authorized(h func(w http.ResponseWriter, r *http.Request, raw []byte)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		defer s.mu.Unlock()
		c := s.record(r, raw)

		if r.Header.Get(common.PlatformHeaderName) != common.PlatformHeaderValue {
			writeEnvelope(w, http.StatusBadRequest, 400, "missing platform header", nil)
			return
		}
		if s.rejectAll || !s.validTokens[c.Token] {
			writeEnvelope(w, http.StatusUnauthorized, 401, "token expired", nil)
			return
		}
		if s.rejectNext > 0 {
			s.rejectNext--
			delete(s.validTokens, c.Token)
			writeEnvelope(w, http.StatusUnauthorized, 401, "token expired", nil)
			return
		}
		if n := s.transient[r.URL.Path]; n > 0 {
			s.transient[r.URL.Path] = n - 1
			writeEnvelope(w, http.StatusServiceUnavailable, 503, "try again", nil)
			return
		}
		if f, found := s.failures[r.URL.Path]; found {
			writeEnvelope(w, http.StatusOK, f.code, f.message, nil)
			return
		}
		h(w, r, raw)
	}
}

func (s *Server) mkdirLocked(name string) int64 {
	s.nextID++
	s.dirs[name] = s.nextID
	return s.nextID
}

func (s *Server) handleFileList(w http.ResponseWriter, r *http.Request, _ []byte) {
	q := r.URL.Query()
	files := []map[string]any{}
	if id, found := s.dirs[q.Get("searchData")]; found && q.Get("searchMode") == strconv.Itoa(panapi.SearchModeExact) {
		files = append(files, map[string]any{"file_id": id, "filename": q.Get("searchData"), "type": 1})
	}
	ok(w, map[string]any{"lastFileId": -1, "files": files})
}

func (s *Server) handleMkdir(w http.ResponseWriter, _ *http.Request, raw []byte) {
	var req struct {
		Name     string `json:"name"`
		ParentID int64  `json:"parentID"`
	}
	if err := json.Unmarshal(raw, &req); err != nil || req.Name == "" {
		writeEnvelope(w, http.StatusOK, 1, "invalid directory name", nil)
		return
	}
	ok(w, map[string]any{"file_id": s.mkdirLocked(req.Name)})
}

func (s *Server) handleCreateUpload(w http.ResponseWriter, _ *http.Request, raw []byte) {
	var req panapi.CreateUploadRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.FileName == "" || req.ETag == "" {
		writeEnvelope(w, http.StatusOK, 1, "invalid upload request", nil)
		return
	}

	if id, found := s.reuse[req.ETag]; found {
		data := map[string]any{"reuse": true, "preupload_id": ""}
		if id != 0 {
			data["file_id"] = id
		}
		ok(w, data)
		return
	}

	s.nextID++
	u := &upload{
		id:       fmt.Sprintf("pre-%d", len(s.uploads)+1),
		fileName: req.FileName,
		size:     req.Size,
		etag:     req.ETag,
		slices:   map[int][]byte{},
		fileID:   s.nextID,
	}
	s.uploads[u.id] = u
	s.byName[u.fileName] = u
	ok(w, map[string]any{"reuse": false, "preupload_id": u.id})
}

func (s *Server) handleGetUploadURL(w http.ResponseWriter, r *http.Request, _ []byte) {
	q := r.URL.Query()
	u := s.uploads[q.Get("preuploadID")]
	n, err := strconv.Atoi(q.Get("sliceNo"))
	if u == nil || err != nil || n < 1 {
		writeEnvelope(w, http.StatusOK, 1, "unknown upload or slice", nil)
		return
	}

	key := fmt.Sprintf("%s/%d", u.id, n)
	req, err := s.presign.PresignPutObject(r.Context(), &s3.PutObjectInput{
		Bucket: aws.String(sliceBucket),
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, 500, err.Error(), nil)
		return
	}
	ok(w, map[string]any{"upload_url": req.URL})
}

func (s *Server) handleSlicePut(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	// /slices/<preuploadID>/<sliceNo>
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, SlicePath+"/"), "/")
	c := Call{Method: r.Method, Path: SlicePath, Query: r.URL.Query(), Size: len(body)}
	if len(parts) == 2 {
		c.PreuploadID = parts[0]
		c.SliceNo, _ = strconv.Atoi(parts[1])
	}
	s.calls = append(s.calls, c)

	u := s.uploads[c.PreuploadID]
	if r.Method != http.MethodPut || u == nil || c.SliceNo < 1 || r.URL.Query().Get("X-Amz-Signature") == "" {
		http.Error(w, "bad slice request", http.StatusBadRequest)
		return
	}
	if status, found := s.sliceFailures[sliceKey{u.fileName, c.SliceNo}]; found {
		http.Error(w, "slice rejected", status)
		return
	}
	u.slices[c.SliceNo] = body
	w.WriteHeader(http.StatusOK)
}

func assemble(u *upload) []byte {
	var out []byte
	for i := 1; i <= len(u.slices); i++ {
		out = append(out, u.slices[i]...)
	}
	return out
}

// verifyLocked reports why the received slices do not form the declared file.
func verifyLocked(u *upload) string {
	for i := 1; i <= len(u.slices); i++ {
		if _, found := u.slices[i]; !found {
			return fmt.Sprintf("slice %d missing", i)
		}
	}
	content := assemble(u)
	if int64(len(content)) != u.size {
		return fmt.Sprintf("received %d of %d bytes", len(content), u.size)
	}
	sum := md5.Sum(content)
	if hex.EncodeToString(sum[:]) != u.etag {
		return "etag mismatch"
	}
	return ""
}

func (s *Server) handleUploadComplete(w http.ResponseWriter, _ *http.Request, raw []byte) {
	var req struct {
		PreuploadID string `json:"preuploadID"`
	}
	_ = json.Unmarshal(raw, &req)

	u := s.uploads[req.PreuploadID]
	if u == nil {
		writeEnvelope(w, http.StatusOK, 1, "unknown upload", nil)
		return
	}
	if msg := verifyLocked(u); msg != "" {
		writeEnvelope(w, http.StatusOK, 1, msg, nil)
		return
	}
	if s.syncComplete {
		u.done = true
		ok(w, map[string]any{"completed": true, "async": false, "file_id": u.fileID})
		return
	}
	ok(w, map[string]any{"completed": false, "async": true})
}

func (s *Server) handleUploadResult(w http.ResponseWriter, r *http.Request, _ []byte) {
	u := s.uploads[r.URL.Query().Get("preuploadID")]
	if u == nil {
		writeEnvelope(w, http.StatusOK, 1, "unknown upload", nil)
		return
	}

	i := u.polls
	if i >= len(s.pollStatuses) {
		i = len(s.pollStatuses) - 1
	}
	u.polls++
	status := s.pollStatuses[i]

	data := map[string]any{"status": status}
	if status == panapi.UploadStatusCompleted {
		u.done = true
		data["file_id"] = u.fileID
	}
	ok(w, data)
}

func (s *Server) handleShareCreate(w http.ResponseWriter, _ *http.Request, raw []byte) {
	var req struct {
		ShareName  string `json:"shareName"`
		FileIDList string `json:"fileIDList"`
	}
	if err := json.Unmarshal(raw, &req); err != nil || req.ShareName == "" || req.FileIDList == "" {
		writeEnvelope(w, http.StatusOK, 1, "invalid share request", nil)
		return
	}

	s.shares++
	key := fmt.Sprintf("key%d", s.shares)
	data := map[string]any{"share_key": key, "share_id": s.shares}
	if !s.shareKeyOnly {
		data["share_url"] = s.ShareURL(key)
	}
	ok(w, data)
}
