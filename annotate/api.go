package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any]() (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R])
	apiCallback := NewApiCallback[R](func(result R, err error) {
		c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return apiCallback, c
}

// GatewayApi is the client for the annotation gateway. One instance per
// page session. Scoped calls carry the session JWT set by `SetAuthJwt`.
type GatewayApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string

	stateLock sync.Mutex
	authJwt   string
}

func NewGatewayApi(apiUrl string) *GatewayApi {
	return NewGatewayApiWithContext(context.Background(), apiUrl)
}

func NewGatewayApiWithContext(ctx context.Context, apiUrl string) *GatewayApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &GatewayApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
	}
}

// this gets attached to api calls that need it
func (self *GatewayApi) SetAuthJwt(authJwt string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.authJwt = authJwt
}

func (self *GatewayApi) AuthJwt() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.authJwt
}

func (self *GatewayApi) Close() {
	self.cancel()
}

// collectionPath maps a kind to its "get all" endpoint.
func collectionPath(kind EntityKind) string {
	switch kind {
	case KindProject:
		return "projects"
	case KindNetwork:
		return "networks"
	case KindStation:
		return "stations"
	case KindSurfaceStation:
		return "surface-stations"
	case KindLandmark:
		return "landmarks"
	case KindPointOfInterest:
		return "points-of-interest"
	case KindGpsTrack:
		return "gps-tracks"
	default:
		return string(kind)
	}
}

type AuthLoginCallback apiCallback[*AuthLoginResult]

type AuthLoginArgs struct {
	UserAuth string `json:"user_auth"`
	Password string `json:"password"`
}

type AuthLoginResult struct {
	Token string                `json:"token,omitempty"`
	Error *AuthLoginResultError `json:"error,omitempty"`
}

type AuthLoginResultError struct {
	Message string `json:"message"`
}

func (self *GatewayApi) AuthLogin(authLogin *AuthLoginArgs, callback AuthLoginCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/auth/login", self.apiUrl),
		authLogin,
		self.AuthJwt(),
		&AuthLoginResult{},
		callback,
	)
}

func (self *GatewayApi) AuthLoginSync(authLogin *AuthLoginArgs) (*AuthLoginResult, error) {
	return post(
		self.ctx,
		fmt.Sprintf("%s/auth/login", self.apiUrl),
		authLogin,
		self.AuthJwt(),
		&AuthLoginResult{},
		NewNoopApiCallback[*AuthLoginResult](),
	)
}

type GetCollectionCallback apiCallback[*GetCollectionResult]

type GetCollectionResult struct {
	Kind     EntityKind
	Envelope *CollectionEnvelope
}

func (self *GatewayApi) GetCollection(kind EntityKind, callback GetCollectionCallback) {
	go self.getCollection(kind, callback)
}

func (self *GatewayApi) GetCollectionSync(kind EntityKind) (*GetCollectionResult, error) {
	return self.getCollection(kind, NewNoopApiCallback[*GetCollectionResult]())
}

func (self *GatewayApi) getCollection(kind EntityKind, callback GetCollectionCallback) (*GetCollectionResult, error) {
	body, err := getRaw(
		self.ctx,
		fmt.Sprintf("%s/%s", self.apiUrl, collectionPath(kind)),
		self.AuthJwt(),
	)
	if err != nil {
		callback.Result(nil, err)
		return nil, err
	}
	result := &GetCollectionResult{
		Kind:     kind,
		Envelope: ParseCollectionEnvelope(body),
	}
	callback.Result(result, nil)
	return result, nil
}

// EntityArgs is the write payload for create and update. Nil coordinate
// fields are omitted so partial updates do not zero a position.
// `OperationId` is the client-generated id of the mutation, attached so
// the gateway can correlate and dedupe retried writes.
type EntityArgs struct {
	OperationId *Id      `json:"operation_id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Project     string   `json:"project,omitempty"`
	Network     string   `json:"network,omitempty"`
}

type EntityWriteCallback apiCallback[*EntityWriteResult]

type EntityWriteResult struct {
	Kind EntityKind
	// the created/updated record, unwrapped from a `data` key when present
	Record json.RawMessage
}

func (self *GatewayApi) CreateEntity(kind EntityKind, args *EntityArgs, callback EntityWriteCallback) {
	go self.writeEntity("POST", fmt.Sprintf("%s/%s", self.apiUrl, collectionPath(kind)), kind, args, callback)
}

func (self *GatewayApi) CreateEntitySync(kind EntityKind, args *EntityArgs) (*EntityWriteResult, error) {
	return self.writeEntity("POST", fmt.Sprintf("%s/%s", self.apiUrl, collectionPath(kind)), kind, args, NewNoopApiCallback[*EntityWriteResult]())
}

func (self *GatewayApi) UpdateEntity(kind EntityKind, entityId string, args *EntityArgs, callback EntityWriteCallback) {
	go self.writeEntity("PUT", fmt.Sprintf("%s/%s/%s", self.apiUrl, collectionPath(kind), entityId), kind, args, callback)
}

func (self *GatewayApi) UpdateEntitySync(kind EntityKind, entityId string, args *EntityArgs) (*EntityWriteResult, error) {
	return self.writeEntity("PUT", fmt.Sprintf("%s/%s/%s", self.apiUrl, collectionPath(kind), entityId), kind, args, NewNoopApiCallback[*EntityWriteResult]())
}

func (self *GatewayApi) writeEntity(method string, url string, kind EntityKind, args *EntityArgs, callback EntityWriteCallback) (*EntityWriteResult, error) {
	body, err := requestRaw(self.ctx, method, url, args, self.AuthJwt())
	if err != nil {
		callback.Result(nil, err)
		return nil, err
	}
	result := &EntityWriteResult{
		Kind:   kind,
		Record: parseRecordEnvelope(body),
	}
	callback.Result(result, nil)
	return result, nil
}

type DeleteEntityCallback apiCallback[*DeleteEntityResult]

type DeleteEntityResult struct {
	Kind EntityKind
	Id   string
}

func (self *GatewayApi) DeleteEntity(kind EntityKind, entityId string, callback DeleteEntityCallback) {
	go self.deleteEntity(kind, entityId, callback)
}

func (self *GatewayApi) DeleteEntitySync(kind EntityKind, entityId string) (*DeleteEntityResult, error) {
	return self.deleteEntity(kind, entityId, NewNoopApiCallback[*DeleteEntityResult]())
}

func (self *GatewayApi) deleteEntity(kind EntityKind, entityId string, callback DeleteEntityCallback) (*DeleteEntityResult, error) {
	_, err := requestRaw(
		self.ctx,
		"DELETE",
		fmt.Sprintf("%s/%s/%s", self.apiUrl, collectionPath(kind), entityId),
		nil,
		self.AuthJwt(),
	)
	if err != nil {
		callback.Result(nil, err)
		return nil, err
	}
	result := &DeleteEntityResult{
		Kind: kind,
		Id:   entityId,
	}
	callback.Result(result, nil)
	return result, nil
}

func post[R any](ctx context.Context, url string, args any, authJwt string, result R, callback apiCallback[R]) (R, error) {
	responseBodyBytes, err := requestRaw(ctx, "POST", url, args, authJwt)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}

func getRaw(ctx context.Context, url string, authJwt string) ([]byte, error) {
	return requestRaw(ctx, "GET", url, nil, authJwt)
}

func requestRaw(ctx context.Context, method string, url string, args any, authJwt string) ([]byte, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return nil, err
	}

	req.Header.Add("Content-Type", "application/json")

	if authJwt != "" {
		auth := fmt.Sprintf("Bearer %s", authJwt)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if http.StatusOK != r.StatusCode && http.StatusCreated != r.StatusCode && http.StatusNoContent != r.StatusCode {
		return nil, errors.New(errorMessageFromBody(responseBodyBytes, r.StatusCode))
	}

	if err != nil {
		return nil, err
	}

	return responseBodyBytes, nil
}

// errorMessageFromBody prefers a server-supplied message field over the
// raw body text, over a generic fallback.
func errorMessageFromBody(body []byte, statusCode int) string {
	var parsed struct {
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != nil && parsed.Error.Message != "" {
			return parsed.Error.Message
		}
	}
	if message := strings.TrimSpace(string(body)); message != "" {
		return message
	}
	return fmt.Sprintf("gateway error (%d)", statusCode)
}
