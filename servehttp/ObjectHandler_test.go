package servehttp_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"changeportal/bizerror"
	"changeportal/coordinator"
	"changeportal/domain"
	"changeportal/domain/state"
	"changeportal/security"
	"changeportal/servehttp"
	"changeportal/testinfra"
	"changeportal/watcher"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const objectJSON = `{"id":"c1","kind":"change","title":"db upgrade","status":"submitted","created_by":"u1",
	"customers":["acme"],"include_meeting":false,"modifications":[]}`

func submittedObject() *domain.ManagedObject {
	return &domain.ManagedObject{ID: "c1", Kind: domain.KindChange, Title: "db upgrade", Status: domain.StatusSubmitted,
		CreatedBy: "u1", Customers: []string{"acme"}, Modifications: []domain.ModificationEntry{}}
}

func newRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	}
	req.Header.Set(security.HeaderUserID, "u1")
	return req
}

var _ = Describe("ObjectHandler", func() {
	var (
		router  *gin.Engine
		manager *coordinatorMock
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.Default()
		router.Use(bizerror.ErrorHandling())
		manager = &coordinatorMock{}
		servehttp.RegisterObjectHandler(router, manager, security.SimpleAuthFilter())
	})

	It("should reject anonymous requests", func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/changes", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(MatchJSON(`{"code":"common.unauthenticated","message":"unauthenticated","data":null}`))
	})

	It("should reject unknown kinds", func() {
		status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodGet, "/v1/widgets", ""), router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"unknown object kind","data":null}`))
	})

	Describe("handleList", func() {
		It("should list objects of kind", func() {
			var queried domain.Kind
			manager.ListFunc = func(ctx context.Context, kind domain.Kind) ([]domain.ManagedObject, error) {
				queried = kind
				return []domain.ManagedObject{*submittedObject()}, nil
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodGet, "/v1/changes", ""), router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`[` + objectJSON + `]`))
			Expect(queried).To(Equal(domain.KindChange))
		})

		It("should map store failures", func() {
			manager.ListFunc = func(ctx context.Context, kind domain.Kind) ([]domain.ManagedObject, error) {
				return nil, &bizerror.ErrRetries{Attempts: 3, Last: &bizerror.ErrStoreResponse{Method: "GET", Path: "/announcements",
					StatusCode: 503, Body: "down", Cause: bizerror.ErrTransient}}
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodGet, "/v1/announcements", ""), router)
			Expect(status).To(Equal(http.StatusBadGateway))
			Expect(body).To(MatchJSON(`{"code":"store.retries_exhausted",
				"message":"retries exhausted after 3 attempts: store GET /announcements responded 503: down","data":null}`))
		})
	})

	Describe("handleDetail", func() {
		It("should return object with available actions", func() {
			manager.GetFunc = func(ctx context.Context, kind domain.Kind, id string) (*coordinator.ObjectDetail, error) {
				obj := submittedObject()
				return &coordinator.ObjectDetail{ManagedObject: obj, Actions: state.AvailableActions(obj.Kind, obj.Status)}, nil
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodGet, "/v1/changes/c1", ""), router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"id":"c1","kind":"change","title":"db upgrade","status":"submitted","created_by":"u1",
				"customers":["acme"],"include_meeting":false,"modifications":[],
				"actions":[{"name":"approve","to":"approved"},{"name":"cancel","to":"cancelled"}]}`))
		})

		It("should respond not found", func() {
			manager.GetFunc = func(ctx context.Context, kind domain.Kind, id string) (*coordinator.ObjectDetail, error) {
				return nil, &bizerror.ErrStoreResponse{Method: "GET", Path: "/changes/" + id, StatusCode: 404, Body: "", Cause: bizerror.ErrNotFound}
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodGet, "/v1/changes/c9", ""), router)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(body).To(MatchJSON(`{"code":"common.record_not_found","message":"store GET /changes/c9 responded 404: ","data":null}`))
		})
	})

	Describe("handleCreate", func() {
		It("should be able to handle bind error", func() {
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodPost, "/v1/changes", `bad json`), router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"invalid character 'b' looking for beginning of value","data":null}`))
		})

		It("should be able to handle validate error", func() {
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodPost, "/v1/changes", `{}`), router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"Key: 'DraftCreation.Title' Error:Field validation for 'Title' failed on the 'required' tag","data":null}`))
		})

		It("should be able to handle service error", func() {
			manager.CreateFunc = func(ctx context.Context, kind domain.Kind, c *coordinator.DraftCreation, actorID string) (*domain.ManagedObject, error) {
				return nil, errors.New("a mocked error")
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodPost, "/v1/changes", `{"title":"db upgrade"}`), router)
			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(MatchJSON(`{"code":"common.internal_server_error","message":"a mocked error","data":null}`))
		})

		It("should be able to create draft", func() {
			var creation *coordinator.DraftCreation
			var actor string
			manager.CreateFunc = func(ctx context.Context, kind domain.Kind, c *coordinator.DraftCreation, actorID string) (*domain.ManagedObject, error) {
				creation, actor = c, actorID
				obj := submittedObject()
				obj.Status = domain.StatusDraft
				return obj, nil
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodPost, "/v1/change",
				`{"title":"db upgrade","customers":["acme"],"include_meeting":true}`), router)
			Expect(status).To(Equal(http.StatusCreated))
			Expect(body).To(MatchJSON(`{"id":"c1","kind":"change","title":"db upgrade","status":"draft","created_by":"u1",
				"customers":["acme"],"include_meeting":false,"modifications":[]}`))
			Expect(*creation).To(Equal(coordinator.DraftCreation{Title: "db upgrade", Customers: []string{"acme"}, MeetingRequired: true}))
			Expect(actor).To(Equal("u1"))
		})
	})

	Describe("handleEdit", func() {
		It("should edit draft", func() {
			var editedID string
			manager.EditFunc = func(ctx context.Context, kind domain.Kind, id string, u *coordinator.DraftUpdating, actorID string) (*domain.ManagedObject, error) {
				editedID = id
				obj := submittedObject()
				obj.Title = u.Title
				return obj, nil
			}
			status, _, _ := testinfra.ExecuteRequest(newRequest(http.MethodPut, "/v1/changes/c1", `{"title":"renamed"}`), router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(editedID).To(Equal("c1"))
		})

		It("should respond conflict for non drafts", func() {
			manager.EditFunc = func(ctx context.Context, kind domain.Kind, id string, u *coordinator.DraftUpdating, actorID string) (*domain.ManagedObject, error) {
				return nil, bizerror.ErrIllegalTransition
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodPut, "/v1/changes/c1", `{"title":"renamed"}`), router)
			Expect(status).To(Equal(http.StatusConflict))
			Expect(body).To(MatchJSON(`{"code":"workflow.illegal_transition","message":"illegal transition","data":null}`))
		})
	})

	Describe("handleTransition", func() {
		It("should validate request", func() {
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodPost, "/v1/changes/c1/transitions", `{"reason":"x"}`), router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"Key: 'TransitionRequest.To' Error:Field validation for 'To' failed on the 'required' tag","data":null}`))
		})

		It("should perform transition as acting user", func() {
			var performed coordinator.TransitionRequest
			manager.PerformByIDFunc = func(ctx context.Context, kind domain.Kind, id string, req coordinator.TransitionRequest) (*domain.ManagedObject, error) {
				performed = req
				obj := submittedObject()
				obj.Status = req.To
				return obj, nil
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodPost, "/v1/changes/c1/transitions",
				`{"to":"cancelled","reason":"withdrawn"}`), router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring(`"status":"cancelled"`))
			Expect(performed).To(Equal(coordinator.TransitionRequest{To: domain.StatusCancelled, ActorID: "u1", Reason: "withdrawn"}))
		})

		It("should respond conflict on illegal transition", func() {
			manager.PerformByIDFunc = func(ctx context.Context, kind domain.Kind, id string, req coordinator.TransitionRequest) (*domain.ManagedObject, error) {
				return nil, &bizerror.ErrTransition{From: domain.StatusCompleted, To: req.To}
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodPost, "/v1/changes/c1/transitions", `{"to":"cancelled"}`), router)
			Expect(status).To(Equal(http.StatusConflict))
			Expect(body).To(MatchJSON(`{"code":"workflow.illegal_transition","message":"transition from completed to cancelled is not allowed","data":null}`))
		})

		It("should respond unauthorized when store session expired", func() {
			manager.PerformByIDFunc = func(ctx context.Context, kind domain.Kind, id string, req coordinator.TransitionRequest) (*domain.ManagedObject, error) {
				return nil, &bizerror.ErrStoreResponse{Method: "PUT", Path: "/changes/c1", StatusCode: 401, Body: "expired", Cause: bizerror.ErrAuthRequired}
			}
			status, _, _ := testinfra.ExecuteRequest(newRequest(http.MethodPost, "/v1/changes/c1/transitions", `{"to":"approved"}`), router)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("watches", func() {
		It("should cancel watch of object", func() {
			var cancelledKind domain.Kind
			manager.CancelWatchFunc = func(kind domain.Kind, id string) bool {
				cancelledKind = kind
				return id == "c1"
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodDelete, "/v1/announcements/c1/watch", ""), router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"cancelled":true}`))
			Expect(cancelledKind).To(Equal(domain.KindAnnouncement))

			_, body, _ = testinfra.ExecuteRequest(newRequest(http.MethodDelete, "/v1/announcements/c2/watch", ""), router)
			Expect(body).To(MatchJSON(`{"cancelled":false}`))
		})

		It("should list active watches", func() {
			manager.ActiveWatchesFunc = func() []watcher.Outcome {
				return []watcher.Outcome{{WatcherID: "w1", Name: "meeting_scheduled", Path: "/changes/c1", State: watcher.Polling, Polls: 2}}
			}
			status, body, _ := testinfra.ExecuteRequest(newRequest(http.MethodGet, "/v1/watches", ""), router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`[{"watcherId":"w1","name":"meeting_scheduled","path":"/changes/c1","state":"polling","polls":2,"elapsed":0}]`))
		})
	})
})

type coordinatorMock struct {
	PerformFunc       func(ctx context.Context, obj *domain.ManagedObject, req coordinator.TransitionRequest) (*domain.ManagedObject, error)
	PerformByIDFunc   func(ctx context.Context, kind domain.Kind, id string, req coordinator.TransitionRequest) (*domain.ManagedObject, error)
	CreateFunc        func(ctx context.Context, kind domain.Kind, c *coordinator.DraftCreation, actorID string) (*domain.ManagedObject, error)
	EditFunc          func(ctx context.Context, kind domain.Kind, id string, u *coordinator.DraftUpdating, actorID string) (*domain.ManagedObject, error)
	GetFunc           func(ctx context.Context, kind domain.Kind, id string) (*coordinator.ObjectDetail, error)
	ListFunc          func(ctx context.Context, kind domain.Kind) ([]domain.ManagedObject, error)
	CancelWatchFunc   func(kind domain.Kind, id string) bool
	ActiveWatchesFunc func() []watcher.Outcome
}

func (m *coordinatorMock) Perform(ctx context.Context, obj *domain.ManagedObject, req coordinator.TransitionRequest) (*domain.ManagedObject, error) {
	return m.PerformFunc(ctx, obj, req)
}
func (m *coordinatorMock) PerformByID(ctx context.Context, kind domain.Kind, id string, req coordinator.TransitionRequest) (*domain.ManagedObject, error) {
	return m.PerformByIDFunc(ctx, kind, id, req)
}
func (m *coordinatorMock) Create(ctx context.Context, kind domain.Kind, c *coordinator.DraftCreation, actorID string) (*domain.ManagedObject, error) {
	return m.CreateFunc(ctx, kind, c, actorID)
}
func (m *coordinatorMock) Edit(ctx context.Context, kind domain.Kind, id string, u *coordinator.DraftUpdating, actorID string) (*domain.ManagedObject, error) {
	return m.EditFunc(ctx, kind, id, u, actorID)
}
func (m *coordinatorMock) Get(ctx context.Context, kind domain.Kind, id string) (*coordinator.ObjectDetail, error) {
	return m.GetFunc(ctx, kind, id)
}
func (m *coordinatorMock) List(ctx context.Context, kind domain.Kind) ([]domain.ManagedObject, error) {
	return m.ListFunc(ctx, kind)
}
func (m *coordinatorMock) CancelWatch(kind domain.Kind, id string) bool {
	return m.CancelWatchFunc(kind, id)
}
func (m *coordinatorMock) ActiveWatches() []watcher.Outcome {
	return m.ActiveWatchesFunc()
}
