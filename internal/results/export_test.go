package results

// SetMaxSize lowers the download limit in tests.
func SetMaxSize(c *Client, n int64) { c.maxSize = n }
