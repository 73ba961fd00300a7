package sotu

// Config holds all environment variables
var Config struct {
	CorpusDir    string
	DatabasePath string
}
