// Package validation checks and normalizes task payloads before they reach
// storage. Payloads are decoded JSON objects so that key presence is visible:
// a key set to null is present, a missing key is not.
package validation

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskapi/internal/apperror"
	"taskapi/internal/models"
)

// Payload is a decoded JSON object from a request body.
type Payload map[string]any

const (
	msgInvalidID          = "Invalid ID format"
	msgTitleRequired      = "Title is required and must be a non-empty string"
	msgStatusRequired     = "Status is required"
	msgSubTaskRequired    = "SubTask data is required"
	msgTitleInvalid       = "Title must be a non-empty string"
	msgDescriptionInvalid = "Description must be a string"
	msgStatusInvalid      = "Invalid status value"
	msgNoFields           = "No valid fields provided to update"
)

// ValidateID fails unless id is a 24 character hex ObjectID.
func ValidateID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return apperror.Validation(msgInvalidID)
	}
	return nil
}

// ValidateTaskFields requires a title and a known status and returns the
// details with title and description trimmed.
func ValidateTaskFields(data Payload) (models.TaskDetails, error) {
	title, ok := data["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return models.TaskDetails{}, apperror.Validation(msgTitleRequired)
	}

	raw, present := data["status"]
	if !present || falsy(raw) {
		return models.TaskDetails{}, apperror.Validation(msgStatusRequired)
	}
	status, ok := raw.(string)
	if !ok || !models.Status(status).Valid() {
		return models.TaskDetails{}, apperror.Validation(msgStatusInvalid + ". Must be one of: " + models.StatusList())
	}

	details := models.TaskDetails{
		Title:  strings.TrimSpace(title),
		Status: models.Status(status),
	}
	if raw, present := data["description"]; present && raw != nil {
		description, ok := raw.(string)
		if !ok {
			return models.TaskDetails{}, apperror.Validation(msgDescriptionInvalid)
		}
		details.Description = strings.TrimSpace(description)
	}
	return details, nil
}

// ValidateSubTaskFields rejects an absent payload, then applies the task rules.
func ValidateSubTaskFields(data Payload) (models.TaskDetails, error) {
	if data == nil {
		return models.TaskDetails{}, apperror.Validation(msgSubTaskRequired)
	}
	return ValidateTaskFields(data)
}

// ValidateUpdateFields builds a sparse patch from the recognized keys present
// in data. Each present key is validated on its own.
func ValidateUpdateFields(data Payload) (models.TaskPatch, error) {
	var patch models.TaskPatch

	if raw, present := data["title"]; present {
		title, ok := raw.(string)
		if !ok || strings.TrimSpace(title) == "" {
			return models.TaskPatch{}, apperror.Validation(msgTitleInvalid)
		}
		title = strings.TrimSpace(title)
		patch.Title = &title
	}

	if raw, present := data["description"]; present {
		description, ok := raw.(string)
		if !ok {
			return models.TaskPatch{}, apperror.Validation(msgDescriptionInvalid)
		}
		description = strings.TrimSpace(description)
		patch.Description = &description
	}

	if raw, present := data["status"]; present {
		s, ok := raw.(string)
		status := models.Status(s)
		if !ok || !status.Valid() {
			return models.TaskPatch{}, apperror.Validation(msgStatusInvalid)
		}
		patch.Status = &status
	}

	if patch.Empty() {
		return models.TaskPatch{}, apperror.Validation(msgNoFields)
	}
	return patch, nil
}

// falsy mirrors the loose truthiness used for the required status check.
func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case float64:
		return x == 0
	}
	return false
}
