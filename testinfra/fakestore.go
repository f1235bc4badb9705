package testinfra

import (
	"changeportal/domain"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

type storedRecord struct {
	object  *domain.ManagedObject
	version int
}

// FakeStore is an in-memory object store speaking the store's REST contract:
// GET with ETag / If-None-Match, PUT of whole objects and POST into collections.
type FakeStore struct {
	Server *httptest.Server

	lock     sync.Mutex
	records  map[string]*storedRecord
	failures map[string][]int
	requests map[string]int
	gates    map[string]chan struct{}
	token    string
}

func StartFakeStore() *FakeStore {
	gin.SetMode(gin.TestMode)
	fs := &FakeStore{
		records:  map[string]*storedRecord{},
		failures: map[string][]int{},
		requests: map[string]int{},
		gates:    map[string]chan struct{}{},
	}
	engine := gin.New()
	engine.Use(fs.count, fs.authorize, fs.gate, fs.fail)
	engine.GET("/*path", fs.handleGet)
	engine.PUT("/*path", fs.handlePut)
	engine.POST("/*path", fs.handlePost)
	fs.Server = httptest.NewServer(engine)
	return fs
}

func (fs *FakeStore) URL() string {
	return fs.Server.URL
}

func (fs *FakeStore) Close() {
	fs.lock.Lock()
	for key, g := range fs.gates {
		close(g)
		delete(fs.gates, key)
	}
	fs.lock.Unlock()
	fs.Server.Close()
}

// Seed stores obj at its object path, replacing any previous version.
func (fs *FakeStore) Seed(obj *domain.ManagedObject) string {
	path, err := domain.ObjectPath(obj.Kind, obj.ID)
	if err != nil {
		panic(err)
	}
	fs.lock.Lock()
	defer fs.lock.Unlock()
	version := 0
	if r := fs.records[path]; r != nil {
		version = r.version
	}
	fs.records[path] = &storedRecord{object: obj.Clone(), version: version + 1}
	return path
}

// Modify simulates a backend side effect on the stored object.
func (fs *FakeStore) Modify(path string, mutate func(o *domain.ManagedObject)) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	r := fs.records[path]
	if r == nil {
		panic("no record at " + path)
	}
	mutate(r.object)
	r.version++
}

func (fs *FakeStore) Get(path string) *domain.ManagedObject {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if r := fs.records[path]; r != nil {
		return r.object.Clone()
	}
	return nil
}

// FailNext makes the next requests on method+path answer with the given statuses, in order.
func (fs *FakeStore) FailNext(method, path string, statuses ...int) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	key := method + " " + path
	fs.failures[key] = append(fs.failures[key], statuses...)
}

// RequireToken makes every request without "Authorization: Bearer <token>" answer 401.
func (fs *FakeStore) RequireToken(token string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.token = token
}

// Hold blocks GET requests on path until the returned release func is called.
func (fs *FakeStore) Hold(path string) (release func()) {
	g := make(chan struct{})
	fs.lock.Lock()
	fs.gates[path] = g
	fs.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			fs.lock.Lock()
			if fs.gates[path] == g {
				delete(fs.gates, path)
				close(g)
			}
			fs.lock.Unlock()
		})
	}
}

func (fs *FakeStore) Requests(method, path string) int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.requests[method+" "+path]
}

func (fs *FakeStore) TotalRequests() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	total := 0
	for _, n := range fs.requests {
		total += n
	}
	return total
}

func (fs *FakeStore) count(c *gin.Context) {
	fs.lock.Lock()
	fs.requests[c.Request.Method+" "+c.Request.URL.Path]++
	fs.lock.Unlock()
	c.Next()
}

func (fs *FakeStore) authorize(c *gin.Context) {
	fs.lock.Lock()
	token := fs.token
	fs.lock.Unlock()
	if token != "" && c.GetHeader("Authorization") != "Bearer "+token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "session expired"})
		return
	}
	c.Next()
}

func (fs *FakeStore) gate(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		c.Next()
		return
	}
	fs.lock.Lock()
	g := fs.gates[c.Request.URL.Path]
	fs.lock.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	c.Next()
}

func (fs *FakeStore) fail(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path
	fs.lock.Lock()
	queue := fs.failures[key]
	status := -1
	if len(queue) > 0 {
		status = queue[0]
		fs.failures[key] = queue[1:]
	}
	fs.lock.Unlock()

	if status > 0 {
		c.AbortWithStatusJSON(status, gin.H{"message": fmt.Sprintf("scripted failure %d", status)})
		return
	}
	c.Next()
}

func etag(version int) string {
	return fmt.Sprintf(`"v%d"`, version)
}

func (fs *FakeStore) handleGet(c *gin.Context) {
	path := strings.TrimRight(c.Param("path"), "/")

	fs.lock.Lock()
	var body interface{}
	var tag string
	if r := fs.records[path]; r != nil {
		body, tag = r.object.Clone(), etag(r.version)
	} else {
		var paths []string
		sum := 0
		for p, r := range fs.records {
			if domain.ParentPath(p) == path {
				paths = append(paths, p)
				sum += r.version
			}
		}
		if len(paths) > 0 {
			sort.Strings(paths)
			list := make([]*domain.ManagedObject, 0, len(paths))
			for _, p := range paths {
				list = append(list, fs.records[p].object.Clone())
			}
			body, tag = list, fmt.Sprintf(`"c%d-%d"`, len(paths), sum)
		}
	}
	fs.lock.Unlock()

	if body == nil {
		if _, err := domain.ParseKind(strings.TrimPrefix(path, "/")); err == nil {
			c.JSON(http.StatusOK, []interface{}{})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
		return
	}
	if match := c.GetHeader("If-None-Match"); match != "" && match == tag {
		c.Header("ETag", tag)
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("ETag", tag)
	c.JSON(http.StatusOK, body)
}

func (fs *FakeStore) decode(c *gin.Context) (*domain.ManagedObject, bool) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return nil, false
	}
	obj := &domain.ManagedObject{}
	if err := json.Unmarshal(bodyBytes, obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return nil, false
	}
	if err := obj.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return nil, false
	}
	return obj, true
}

func (fs *FakeStore) handlePut(c *gin.Context) {
	path := strings.TrimRight(c.Param("path"), "/")
	obj, ok := fs.decode(c)
	if !ok {
		return
	}

	fs.lock.Lock()
	r := fs.records[path]
	if r == nil {
		fs.lock.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
		return
	}
	r.object = obj
	r.version++
	tag := etag(r.version)
	fs.lock.Unlock()

	c.Header("ETag", tag)
	c.JSON(http.StatusOK, obj)
}

func (fs *FakeStore) handlePost(c *gin.Context) {
	collection := strings.TrimRight(c.Param("path"), "/")
	obj, ok := fs.decode(c)
	if !ok {
		return
	}
	path, err := domain.ObjectPath(obj.Kind, obj.ID)
	if err != nil || domain.ParentPath(path) != collection {
		c.JSON(http.StatusBadRequest, gin.H{"message": "object does not belong to " + collection})
		return
	}

	fs.lock.Lock()
	if fs.records[path] != nil {
		fs.lock.Unlock()
		c.JSON(http.StatusConflict, gin.H{"message": "object exists"})
		return
	}
	fs.records[path] = &storedRecord{object: obj, version: 1}
	fs.lock.Unlock()

	c.Header("ETag", etag(1))
	c.JSON(http.StatusCreated, obj)
}
