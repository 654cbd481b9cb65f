package results

import "sort"

// ProviderGroupSize is the number of provider columns shown per page.
const ProviderGroupSize = 4

// Providers returns the distinct providers in rows, alphabetically sorted.
func Providers(rows []Row) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		if r.Provider != "" {
			seen[r.Provider] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// GroupProviders partitions providers into fixed-size groups of
// ProviderGroupSize. The last group may be shorter. An empty provider
// list yields no groups.
func GroupProviders(providers []string) [][]string {
	var groups [][]string
	for i := 0; i < len(providers); i += ProviderGroupSize {
		end := i + ProviderGroupSize
		if end > len(providers) {
			end = len(providers)
		}
		groups = append(groups, providers[i:end])
	}
	return groups
}

// GroupCount returns the number of pages needed for n providers,
// never less than 1 so cursor arithmetic stays well-defined with no data.
func GroupCount(n int) int {
	count := (n + ProviderGroupSize - 1) / ProviderGroupSize
	if count < 1 {
		return 1
	}
	return count
}

// IndexByHour returns provider's rows keyed by board hour.
// When multiple rows share an hour, the last one seen wins.
func IndexByHour(rows []Row, provider string) map[int]Row {
	index := make(map[int]Row)
	for _, r := range rows {
		if r.Provider != provider {
			continue
		}
		index[r.Hour] = r
	}
	return index
}
