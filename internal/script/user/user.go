// Package user holds the platform_user handler scripts.
package user

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/platform-user/internal/script"
)

const (
	Group = "user"

	queryInsertUser = "INSERT INTO platform_user (name, login_name) VALUES (?, ?)"
	queryUpdateUser = "UPDATE platform_user SET name = ?, login_name = ? WHERE id = ?"
	querySelectUser = "SELECT * FROM platform_user WHERE id = ?"

	MessageNameRequired   = "Name and login name are required"
	MessageUserIDRequired = "User ID is required"
	MessageUserNotFound   = "User not found"
)

// SaveResult is the payload of a successful save.
type SaveResult struct {
	Success bool `json:"success"`
}

// SaveUser creates a user, or updates one when a non-zero id is supplied.
// The update targets the integer the id starts with, see script.ParseID.
//
// Parameters: id (optional), name, loginName.
func SaveUser(ctx context.Context, params script.Params, db script.DB) (script.Envelope, error) {
	logger := zerolog.Ctx(ctx)

	name := script.Param(params, "name")
	loginName := script.Param(params, "loginName")
	if !script.RequireFields(params, "name", "loginName") {
		return script.BadRequest(MessageNameRequired), nil
	}

	rawID := script.Param(params, "id")
	if script.IsZeroID(rawID) {
		if err := db.Execute(ctx, queryInsertUser, name, loginName); err != nil {
			return script.Envelope{}, errors.Wrap(err, "insert platform_user")
		}
		logger.Debug().Str("login_name", loginName).Msg("user created")
		return script.OK(SaveResult{Success: true}), nil
	}

	id, ok := script.ParseID(rawID)
	if !ok {
		// No integer to match, so no row can be updated.
		logger.Warn().Str("id", rawID).Msg("user id has no integer value, nothing updated")
		return script.OK(SaveResult{Success: true}), nil
	}

	if err := db.Execute(ctx, queryUpdateUser, name, loginName, id); err != nil {
		return script.Envelope{}, errors.Wrapf(err, "update platform_user %d", id)
	}
	logger.Debug().Int64("user_id", id).Msg("user updated")

	return script.OK(SaveResult{Success: true}), nil
}

// GetDetail returns the user row with the given id.
//
// Parameters: id.
func GetDetail(ctx context.Context, params script.Params, db script.DB) (script.Envelope, error) {
	id, ok := script.ParseID(script.Param(params, "id"))
	if !ok {
		return script.BadRequest(MessageUserIDRequired), nil
	}

	rows, err := db.Query(ctx, querySelectUser, id)
	if err != nil {
		return script.Envelope{}, errors.Wrapf(err, "select platform_user %d", id)
	}
	if len(rows) == 0 {
		return script.NotFound(MessageUserNotFound), nil
	}

	return script.OK(rows[0]), nil
}

// Definitions describes the user scripts and their routes.
func Definitions() []script.Definition {
	return []script.Definition{
		{
			Name:        "saveUser",
			Group:       Group,
			Path:        "/api/user/saveUser",
			Description: "Create a user, or update it when id is supplied",
			Version:     "1.0.0",
			Params: []script.ParamSpec{
				{Name: "id", Type: script.TypeInteger, Description: "User ID, omit to create"},
				{Name: "name", Type: script.TypeString, Required: true, Description: "Display name"},
				{Name: "loginName", Type: script.TypeString, Required: true, Description: "Login name"},
			},
			Func: SaveUser,
		},
		{
			Name:        "getDetail",
			Group:       Group,
			Path:        "/api/user/getDetail",
			Description: "Fetch a user by id",
			Version:     "1.0.0",
			Params: []script.ParamSpec{
				{Name: "id", Type: script.TypeInteger, Required: true, Description: "User ID"},
			},
			Func: GetDetail,
		},
	}
}

// Register adds the user scripts to r.
func Register(r *script.Registry) error {
	for _, def := range Definitions() {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}
