// Package common provides the configuration and logging setup shared by the
// edqs commands.
package common
