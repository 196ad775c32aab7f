package search

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
		"if", "in", "into", "is", "it", "no", "not", "of", "on", "or",
		"such", "that", "the", "their", "then", "there", "these", "they",
		"this", "to", "was", "will", "with", "i", "you", "me", "my", "we",
		"our", "your", "he", "she", "him", "her", "its", "do", "does", "did",
		"so", "can", "could", "would", "should", "has", "have", "had", "been",
		"from", "what", "which", "who", "how", "when", "where", "why",
	} {
		stopwords[w] = struct{}{}
	}
}

func isStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}
