package server

//go:generate swag init -g internal/server/swagger.go -o internal/server/docs

// @title shadowzap API
// @version 0.1
// @description Local API for submitting ZAP scans and following their progress.
// @contact.name shadowzap Maintainers
// @contact.url https://github.com/raysh454/shadowzap
// @BasePath /
