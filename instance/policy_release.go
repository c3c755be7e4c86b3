//go:build !framedebug

package instance

var defaultValidationPolicy = LogPolicy
