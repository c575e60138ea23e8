package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           llmapi
// @version         1.0
// @description     Chat completions over a single language model: buffered, streamed (SSE) and benchmark routes.
//
// @contact.name   llmapi maintainers
// @contact.url    https://github.com/llmapi/llmapi
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
