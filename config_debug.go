//go:build framedebug

package frame

const debugBuild = true
