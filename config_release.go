//go:build !framedebug

package frame

const debugBuild = false
