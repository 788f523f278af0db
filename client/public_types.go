package client

import (
	"github.com/Theruz/8aAscents/client/internal/dispatch"
	"github.com/Theruz/8aAscents/client/internal/endpoint"
	"github.com/Theruz/8aAscents/client/internal/environment"
	"github.com/Theruz/8aAscents/client/internal/executor"
	"github.com/Theruz/8aAscents/client/internal/session"
	"github.com/Theruz/8aAscents/client/internal/transport"
	"github.com/Theruz/8aAscents/client/internal/types"
)

// Public type aliases so SDK consumers can import only the client package.
type (
	// Requests
	CreateProfileRequest = types.CreateProfileRequest
	LoginRequest         = types.LoginRequest

	// Domain entities
	Profile = types.Profile
	Date    = types.Date

	// Calls
	Descriptor       = endpoint.Descriptor
	DescriptorOption = endpoint.Option
	AuthLevel        = endpoint.AuthLevel
	Category         = endpoint.Category
	Encoding         = endpoint.Encoding
	Attachment       = endpoint.Attachment
	Target           = endpoint.Target
	Shape            = executor.Shape
	Result           = executor.Result
	Call             = dispatch.Call
	Callback         = dispatch.Callback

	// Collaborators
	Environment    = environment.Environment
	Mode           = environment.Mode
	HostTable      = environment.HostTable
	ModeHosts      = environment.ModeHosts
	Transport      = transport.Transport
	SessionManager = session.Manager
	SessionEvent   = session.Event
	SessionOption  = session.Option
)

const (
	AuthNone     = endpoint.AuthNone
	AuthLevelOne = endpoint.AuthLevelOne
	AuthLevelTwo = endpoint.AuthLevelTwo

	CategoryConfigTool    = endpoint.CategoryConfigTool
	CategoryAccounts      = endpoint.CategoryAccounts
	CategoryAppointments  = endpoint.CategoryAppointments
	CategoryAttachments   = endpoint.CategoryAttachments
	CategoryNotifications = endpoint.CategoryNotifications
	CategoryProfiles      = endpoint.CategoryProfiles
	CategorySessions      = endpoint.CategorySessions

	EncodingJSON = endpoint.EncodingJSON
	EncodingForm = endpoint.EncodingForm

	ModeMock        = environment.ModeMock
	ModeDevelopment = environment.ModeDevelopment
	ModeIntegration = environment.ModeIntegration
	ModeUAT         = environment.ModeUAT
	ModeStaging     = environment.ModeStaging
	ModeProduction  = environment.ModeProduction

	EventForceLogout        = session.EventForceLogout
	EventBackendKeepAlive   = session.EventBackendKeepAlive
	EventApplicationTimeout = session.EventApplicationTimeout
)

// Descriptor construction.
var (
	NewDescriptor      = endpoint.New
	EndpointAuth       = endpoint.WithAuth
	EndpointBody       = endpoint.WithBody
	EndpointQuery      = endpoint.WithQuery
	EndpointHeaders    = endpoint.WithHeaders
	EndpointPathParams = endpoint.WithPathParams
	EndpointEncoding   = endpoint.WithEncoding
	EndpointFiles      = endpoint.WithAttachments
	EndpointName       = endpoint.WithDescription
	EndpointHost       = endpoint.WithHost
	Equivalent         = endpoint.Equivalent
)

// Collaborator construction.
var (
	NewSessionManager = session.NewManager
	SessionTimeouts   = session.WithTimeouts
	NewEnvironment    = environment.New
	ParseMode         = environment.ParseMode
	LoadHostsFile     = environment.LoadHostsFile
)

// Single asks for the body decoded into a *T.
func Single[T any]() Shape { return executor.Single[T]() }

// List asks for the body decoded into a []T.
func List[T any]() Shape { return executor.List[T]() }

// Raw asks for the body as a JSON object.
func Raw() Shape { return executor.Raw() }

// Empty ignores the body.
func Empty() Shape { return executor.Empty() }

// ObjectAs returns a Single result's payload.
func ObjectAs[T any](r Result) (*T, error) { return executor.ObjectAs[T](r) }

// ListAs returns a List result's payload.
func ListAs[T any](r Result) ([]T, error) { return executor.ListAs[T](r) }
