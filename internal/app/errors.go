package service

import "errors"

var (
	// ErrMissingVideoID indicates an empty video identifier on a verdict.
	ErrMissingVideoID = errors.New("video id must not be empty")
	// ErrSelfComparison indicates both sides of a verdict name the same video.
	ErrSelfComparison = errors.New("cannot compare a video against itself")
	// ErrInvalidVerdict indicates an unknown verdict value.
	ErrInvalidVerdict = errors.New("verdict must be one of better, same, worse")
	// ErrEventNotFound indicates no ledger entry for the given id.
	ErrEventNotFound = errors.New("event not found")
	// ErrImportVersion indicates an archive whose schema version cannot be loaded.
	ErrImportVersion = errors.New("unsupported archive schema version")
	// ErrImportPayload indicates a structurally invalid archive.
	ErrImportPayload = errors.New("invalid archive payload")
)
