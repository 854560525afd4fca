package anthropic

// BuildCachedSystemBlocks wraps a system prompt in a single block marked for
// prompt caching with a 1h TTL. Reusing the same blocks across sequential
// requests lets later calls read the cached prefix instead of resending it.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "1h"},
		},
	}
}
