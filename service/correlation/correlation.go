// Package correlation implements the correlation analyzer (C9): global
// token statistics, pairwise shared-token/synchronized-trade scoring,
// and connected-component cluster extraction over the resulting graph.
package correlation

import (
	"math"
	"sort"

	"github.com/brojonat/solwatch/service/db"
)

// Config tunes one analysis run. Mirrors the canonical configuration
// keys surfaced in service/config.
type Config struct {
	PopularPercent           float64
	MinOccurrencesForPopular int
	ExcludedMints            map[string]bool
	SyncTimeWindowSeconds    int64
	WeightSharedNonObvious   float64
	WeightSyncEvents         float64
	MinSharedNonObvious      int
	MinSyncEvents            int
	MinClusterScoreThreshold float64
	// BotFilterMaxDailyTokens excludes a wallet from analysis if, on any
	// UTC calendar day, it has more distinct purchased mints than this.
	BotFilterMaxDailyTokens int
}

// GlobalStats is the corpus-wide token frequency breakdown.
type GlobalStats struct {
	TotalUniqueTokens int
	Popular           map[string]bool
	NonObvious        map[string]bool
	CountsByMint      map[string]int
}

// SharedToken annotates a non-obvious mint shared by a wallet pair with
// each side's occurrence count.
type SharedToken struct {
	Mint      string
	CountA    int
	CountB    int
}

// SyncEvent is one matched pair of same-direction, same-mint trades
// within the configured time window.
type SyncEvent struct {
	Mint          string
	Direction     db.Direction
	TimestampA    int64
	TimestampB    int64
	DiffSeconds   int64
}

// Pair is a scored wallet pair with walletA < walletB lexicographically.
type Pair struct {
	WalletA          string
	WalletB          string
	Score            float64
	SharedNonObvious []SharedToken
	SyncEvents       []SyncEvent
}

// Cluster is a connected component of >=3 wallets in the threshold graph.
type Cluster struct {
	Members     []string
	Score       float64
	SharedTokens []string
}

// Result is the full output of one analysis run.
type Result struct {
	GlobalStats GlobalStats
	Pairs       []Pair
	Clusters    []Cluster
}

// Analyze runs the bot filter, global token stats, pairwise scoring,
// and cluster extraction over transactionsByWallet.
func Analyze(transactionsByWallet map[string][]db.TransactionData, cfg Config) Result {
	filtered := applyBotFilter(transactionsByWallet, cfg.BotFilterMaxDailyTokens)
	stats := computeGlobalStats(filtered, cfg)
	pairs := computePairs(filtered, stats, cfg)
	clusters := extractClusters(pairs, cfg.MinClusterScoreThreshold)
	return Result{GlobalStats: stats, Pairs: pairs, Clusters: clusters}
}

// applyBotFilter excludes wallets that, on any UTC calendar day,
// purchased more than maxDailyTokens distinct mints (direction=in with
// associatedSolValue > 0).
func applyBotFilter(txs map[string][]db.TransactionData, maxDailyTokens int) map[string][]db.TransactionData {
	if maxDailyTokens <= 0 {
		return txs
	}
	out := make(map[string][]db.TransactionData, len(txs))
	for wallet, walletTxs := range txs {
		perDay := map[int64]map[string]bool{}
		for _, tx := range walletTxs {
			if tx.Direction != db.DirectionIn || tx.AssociatedSolValue <= 0 {
				continue
			}
			day := tx.Timestamp / 86400
			if perDay[day] == nil {
				perDay[day] = map[string]bool{}
			}
			perDay[day][tx.Mint] = true
		}
		isBot := false
		for _, mints := range perDay {
			if len(mints) > maxDailyTokens {
				isBot = true
				break
			}
		}
		if !isBot {
			out[wallet] = walletTxs
		}
	}
	return out
}

func computeGlobalStats(txs map[string][]db.TransactionData, cfg Config) GlobalStats {
	counts := map[string]int{}
	for _, walletTxs := range txs {
		for _, tx := range walletTxs {
			if cfg.ExcludedMints[tx.Mint] {
				continue
			}
			counts[tx.Mint]++
		}
	}

	type mintCount struct {
		mint  string
		count int
	}
	ordered := make([]mintCount, 0, len(counts))
	for m, c := range counts {
		ordered = append(ordered, mintCount{m, c})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].mint < ordered[j].mint
	})

	popularRankCutoff := int(math.Floor(float64(len(ordered)) * cfg.PopularPercent))

	popular := map[string]bool{}
	nonObvious := map[string]bool{}
	for i, mc := range ordered {
		if i < popularRankCutoff || mc.count > cfg.MinOccurrencesForPopular {
			popular[mc.mint] = true
		} else {
			nonObvious[mc.mint] = true
		}
	}

	return GlobalStats{
		TotalUniqueTokens: len(ordered),
		Popular:           popular,
		NonObvious:        nonObvious,
		CountsByMint:      counts,
	}
}

func computePairs(txs map[string][]db.TransactionData, stats GlobalStats, cfg Config) []Pair {
	wallets := make([]string, 0, len(txs))
	for w, walletTxs := range txs {
		if len(walletTxs) > 0 {
			wallets = append(wallets, w)
		}
	}
	sort.Strings(wallets)

	var pairs []Pair
	for i := 0; i < len(wallets); i++ {
		for j := i + 1; j < len(wallets); j++ {
			a, b := wallets[i], wallets[j]
			pair, ok := scorePair(a, b, txs[a], txs[b], stats, cfg)
			if ok {
				pairs = append(pairs, pair)
			}
		}
	}
	return pairs
}

func scorePair(a, b string, txsA, txsB []db.TransactionData, stats GlobalStats, cfg Config) (Pair, bool) {
	mintsA := map[string][]db.TransactionData{}
	for _, tx := range txsA {
		mintsA[tx.Mint] = append(mintsA[tx.Mint], tx)
	}
	mintsB := map[string][]db.TransactionData{}
	for _, tx := range txsB {
		mintsB[tx.Mint] = append(mintsB[tx.Mint], tx)
	}

	var shared []SharedToken
	var syncEvents []SyncEvent

	sharedMints := make([]string, 0)
	for mint := range mintsA {
		if _, ok := mintsB[mint]; !ok {
			continue
		}
		if stats.Popular[mint] || cfg.ExcludedMints[mint] {
			continue
		}
		sharedMints = append(sharedMints, mint)
	}
	sort.Strings(sharedMints)

	for _, mint := range sharedMints {
		shared = append(shared, SharedToken{Mint: mint, CountA: len(mintsA[mint]), CountB: len(mintsB[mint])})

		for _, evA := range mintsA[mint] {
			for _, evB := range mintsB[mint] {
				if evA.Direction != evB.Direction {
					continue
				}
				diff := evA.Timestamp - evB.Timestamp
				if diff < 0 {
					diff = -diff
				}
				if diff <= cfg.SyncTimeWindowSeconds {
					syncEvents = append(syncEvents, SyncEvent{
						Mint:        mint,
						Direction:   evA.Direction,
						TimestampA:  evA.Timestamp,
						TimestampB:  evB.Timestamp,
						DiffSeconds: diff,
					})
				}
			}
		}
	}

	sort.Slice(syncEvents, func(i, j int) bool {
		if syncEvents[i].DiffSeconds != syncEvents[j].DiffSeconds {
			return syncEvents[i].DiffSeconds < syncEvents[j].DiffSeconds
		}
		return syncEvents[i].TimestampA < syncEvents[j].TimestampA
	})

	score := float64(len(shared))*cfg.WeightSharedNonObvious + float64(len(syncEvents))*cfg.WeightSyncEvents
	score = math.Round(score*100) / 100

	if score <= 0 {
		return Pair{}, false
	}
	if len(shared) < cfg.MinSharedNonObvious && len(syncEvents) < cfg.MinSyncEvents {
		return Pair{}, false
	}

	return Pair{
		WalletA:          a,
		WalletB:          b,
		Score:            score,
		SharedNonObvious: shared,
		SyncEvents:       syncEvents,
	}, true
}

// extractClusters builds an undirected graph over wallets joined by
// pairs with score >= threshold, then runs DFS to find connected
// components of size >= 3.
func extractClusters(pairs []Pair, threshold float64) []Cluster {
	adj := map[string][]Pair{}
	for _, p := range pairs {
		if p.Score < threshold {
			continue
		}
		adj[p.WalletA] = append(adj[p.WalletA], p)
		adj[p.WalletB] = append(adj[p.WalletB], p)
	}

	nodes := make([]string, 0, len(adj))
	for w := range adj {
		nodes = append(nodes, w)
	}
	sort.Strings(nodes)

	visited := map[string]bool{}
	var clusters []Cluster

	for _, start := range nodes {
		if visited[start] {
			continue
		}
		component := dfsComponent(start, adj, visited)
		if len(component) < 3 {
			continue
		}
		clusters = append(clusters, buildCluster(component, pairs, threshold))
	}
	return clusters
}

func dfsComponent(start string, adj map[string][]Pair, visited map[string]bool) []string {
	var component []string
	stack := []string{start}
	for len(stack) > 0 {
		n := len(stack) - 1
		node := stack[n]
		stack = stack[:n]
		if visited[node] {
			continue
		}
		visited[node] = true
		component = append(component, node)
		for _, p := range adj[node] {
			other := p.WalletB
			if other == node {
				other = p.WalletA
			}
			if !visited[other] {
				stack = append(stack, other)
			}
		}
	}
	sort.Strings(component)
	return component
}

func buildCluster(component []string, pairs []Pair, threshold float64) Cluster {
	members := map[string]bool{}
	for _, m := range component {
		members[m] = true
	}

	var sum float64
	var count int
	sharedSet := map[string]bool{}
	for _, p := range pairs {
		if p.Score < threshold {
			continue
		}
		if !members[p.WalletA] || !members[p.WalletB] {
			continue
		}
		sum += p.Score
		count++
		for _, s := range p.SharedNonObvious {
			sharedSet[s.Mint] = true
		}
	}

	avg := 0.0
	if count > 0 {
		avg = math.Round(sum/float64(count)*100) / 100
	}

	sharedTokens := make([]string, 0, len(sharedSet))
	for m := range sharedSet {
		sharedTokens = append(sharedTokens, m)
	}
	sort.Strings(sharedTokens)

	return Cluster{Members: component, Score: avg, SharedTokens: sharedTokens}
}
