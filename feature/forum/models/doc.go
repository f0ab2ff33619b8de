// Package models declares the gorm models of the forum store that imports
// write into. Counter columns (vote_count, comment_count, post_count) are
// denormalized and maintained by the importer.
package models
