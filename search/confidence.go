package search

// documentConfidence scores how trustworthy a set of document hits is
// for answering a query. A single strong hit is not trusted unless most
// retrieved hits are also reasonably similar, which penalizes noisy
// corpora.
//
// Let avg and max be the mean and maximum similarity, and q the
// fraction of hits above StrongSimilarity. Then
//
//	confidence = clamp01(((avg*AvgWeight + max*MaxWeight) * q) * penalty)
//
// where penalty is LowMaxPenalty when max < LowMaxCutoff, MidMaxPenalty
// when max < MidMaxCutoff, and 1 otherwise.
func documentConfidence(results []*DocumentResult, cfg Config) float64 {
	if len(results) == 0 {
		return 0
	}

	var sum, max float64
	strong := 0
	for _, result := range results {
		similarity := float64(result.Similarity)
		sum += similarity
		if similarity > max {
			max = similarity
		}
		if similarity > cfg.StrongSimilarity {
			strong++
		}
	}

	avg := sum / float64(len(results))
	quality := float64(strong) / float64(len(results))

	confidence := (avg*cfg.AvgWeight + max*cfg.MaxWeight) * quality

	if max < cfg.LowMaxCutoff {
		confidence *= cfg.LowMaxPenalty
	} else if max < cfg.MidMaxCutoff {
		confidence *= cfg.MidMaxPenalty
	}

	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	return confidence
}
