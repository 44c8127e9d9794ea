package data

import (
	"safetyhub/internal/config"
	"safetyhub/internal/issue"
)

// validator checks reporting requests against the source registry.
//
// Every validated entry point rejects requests the configuration does not
// declare, before touching any store state.
type validator struct {
	registry *config.Registry
}

func (v validator) validateRequest(sourceID, packageName string, userID issue.UserID) error {
	src, ok := v.registry.Source(sourceID)
	if !ok {
		return &InvalidRequestError{
			SourceID:    sourceID,
			PackageName: packageName,
			UserID:      userID,
			Reason:      "unknown source id",
		}
	}
	if src.PackageName != packageName {
		return &InvalidRequestError{
			SourceID:    sourceID,
			PackageName: packageName,
			UserID:      userID,
			Reason:      "package not declared for this source",
		}
	}
	if userID < 0 {
		return &InvalidRequestError{
			SourceID:    sourceID,
			PackageName: packageName,
			UserID:      userID,
			Reason:      "invalid user id",
		}
	}
	return nil
}

// sourceKeyFor rebuilds the full source key for an issue key. The registry
// maps each source id to exactly one package, so the triple is recoverable
// from (sourceID, userID) alone.
func (v validator) sourceKeyFor(issueKey issue.IssueKey) (issue.SourceKey, bool) {
	src, ok := v.registry.Source(issueKey.SourceID)
	if !ok {
		return issue.SourceKey{}, false
	}
	return issue.SourceKey{
		SourceID:    issueKey.SourceID,
		PackageName: src.PackageName,
		UserID:      issueKey.UserID,
	}, true
}
