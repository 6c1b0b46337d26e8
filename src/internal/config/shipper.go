// FILE: src/internal/config/shipper.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// FieldError is one shipper configuration violation
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Regions accepted for region
var Regions = map[string]bool{
	"us-east-1": true, "us-east-2": true, "us-west-1": true, "us-west-2": true,
	"af-south-1": true,
	"ap-east-1": true, "ap-south-1": true, "ap-south-2": true,
	"ap-southeast-1": true, "ap-southeast-2": true, "ap-southeast-3": true, "ap-southeast-4": true,
	"ap-northeast-1": true, "ap-northeast-2": true, "ap-northeast-3": true,
	"ca-central-1": true, "ca-west-1": true,
	"eu-central-1": true, "eu-central-2": true,
	"eu-west-1": true, "eu-west-2": true, "eu-west-3": true,
	"eu-north-1": true, "eu-south-1": true, "eu-south-2": true,
	"il-central-1": true,
	"me-south-1": true, "me-central-1": true,
	"sa-east-1": true,
	"us-gov-east-1": true, "us-gov-west-1": true,
	"cn-north-1": true, "cn-northwest-1": true,
}

// ValidateShipper checks the shipper identity fields and returns every
// violation found, or nil
func ValidateShipper(cfg *ShipperConfig) []*FieldError {
	if cfg == nil {
		return []*FieldError{{Field: "shipper", Reason: "is not configured"}}
	}

	var errs []*FieldError
	if e := checkIdentifier("app_name", cfg.AppName); e != nil {
		errs = append(errs, e)
	}
	if e := checkIdentifier("environment", cfg.Environment); e != nil {
		errs = append(errs, e)
	}
	if strings.TrimSpace(cfg.StreamName) == "" {
		errs = append(errs, &FieldError{Field: "stream_name", Reason: "is required"})
	}
	switch {
	case strings.TrimSpace(cfg.Region) == "":
		errs = append(errs, &FieldError{Field: "region", Reason: "is required"})
	case !Regions[cfg.Region]:
		errs = append(errs, &FieldError{Field: "region", Reason: fmt.Sprintf("%q is not a known region", cfg.Region)})
	}
	return errs
}

// JoinFieldErrors folds violations into one error
func JoinFieldErrors(errs []*FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

func checkIdentifier(field, value string) *FieldError {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Reason: "is required"}
	}
	if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		return &FieldError{Field: field, Reason: "must not contain whitespace"}
	}
	return nil
}
