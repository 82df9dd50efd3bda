// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package client is a Go consumer of the memegate HTTP API.

It posts {imageData, prompt} to /api/generate-meme, decodes the canonical
candidates response and extracts the first image part:

	c := client.New(&client.Config{BaseURL: "http://localhost:3001", Timeout: 90 * time.Second})
	img, err := c.GenerateImage(ctx, client.ImageDataURL(photo, ""), prompt)

A connection failure surfaces as ErrUnreachable. A non-2xx answer is an
*APIError carrying the server's error message.
*/
package client
