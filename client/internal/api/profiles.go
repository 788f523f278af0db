package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Theruz/8aAscents/client/internal/dispatch"
	"github.com/Theruz/8aAscents/client/internal/endpoint"
	"github.com/Theruz/8aAscents/client/internal/executor"
	"github.com/Theruz/8aAscents/client/internal/types"
)

// CreateProfileEndpoint describes POST /v1/profiles.
func CreateProfileEndpoint(req types.CreateProfileRequest) endpoint.Descriptor {
	return endpoint.New(endpoint.CategoryProfiles, http.MethodPost, "/v1/profiles",
		endpoint.WithAuth(endpoint.AuthLevelOne),
		endpoint.WithBody(map[string]any{
			"birthDate":       req.BirthDate,
			"insuranceNumber": req.InsuranceNumber,
		}),
		endpoint.WithDescription("create profile"),
	)
}

// GetProfileEndpoint describes GET /v1/profiles/{id}.
func GetProfileEndpoint(profileID int) endpoint.Descriptor {
	return endpoint.New(endpoint.CategoryProfiles, http.MethodGet, "/v1/profiles/{id}",
		endpoint.WithAuth(endpoint.AuthLevelOne),
		endpoint.WithPathParams(strconv.Itoa(profileID)),
		endpoint.WithDescription("get profile"),
	)
}

// CreateProfileAsync submits a profile creation. cb receives nil on success.
// Invalid input is rejected before anything is submitted.
func CreateProfileAsync(ctx context.Context, d Dispatcher, req types.CreateProfileRequest, cb func(error)) (*dispatch.Call, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return d.Submit(ctx, CreateProfileEndpoint(req), executor.Empty(), func(res executor.Result) {
		if cb != nil {
			cb(res.Err)
		}
	}), nil
}

// CreateProfile creates a profile and waits for the backend's answer.
func CreateProfile(ctx context.Context, d Dispatcher, req types.CreateProfileRequest) error {
	done := make(chan error, 1)
	if _, err := CreateProfileAsync(ctx, d, req, func(err error) { done <- err }); err != nil {
		return err
	}
	return awaitErr(ctx, done)
}

// GetProfileAsync fetches one profile.
func GetProfileAsync(ctx context.Context, d Dispatcher, profileID int, cb func(*types.Profile, error)) (*dispatch.Call, error) {
	if err := types.ValidateProfileID(profileID); err != nil {
		return nil, err
	}
	return d.Submit(ctx, GetProfileEndpoint(profileID), executor.Single[types.Profile](), func(res executor.Result) {
		if cb != nil {
			cb(executor.ObjectAs[types.Profile](res))
		}
	}), nil
}

// GetProfile fetches one profile and waits for it.
func GetProfile(ctx context.Context, d Dispatcher, profileID int) (*types.Profile, error) {
	if err := types.ValidateProfileID(profileID); err != nil {
		return nil, err
	}
	cb, ch := collect()
	d.Submit(ctx, GetProfileEndpoint(profileID), executor.Single[types.Profile](), cb)
	res, err := await(ctx, ch)
	if err != nil {
		return nil, err
	}
	return executor.ObjectAs[types.Profile](res)
}
