// Package models defines the data carried through the upload pipeline.
package models
