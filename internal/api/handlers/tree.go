package handlers

import (
	"sort"
	"strings"

	"github.com/wonny/sectorwatch/internal/contracts"
)

// unknownLabel groups stocks whose classification is missing
const unknownLabel = "Unknown"

// SectorNode is the top level of the stocks tree
type SectorNode struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"` // "sector"
	Children []IndustryNode `json:"children"`
}

// IndustryNode groups stocks within a sector
type IndustryNode struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"` // "industry"
	Children []StockNode `json:"children"`
}

// StockNode is one stock leaf
type StockNode struct {
	contracts.StockView
	Type string `json:"type"` // "stock"
}

// BuildSectorTree groups views into sector → industry → stock.
// Every level is sorted by name so the output is stable.
// ⭐ SSOT: 섹터 트리 구성은 여기서만
func BuildSectorTree(views []contracts.StockView) []SectorNode {
	grouped := make(map[string]map[string][]StockNode)
	for _, v := range views {
		sector := classification(v.Sector)
		industry := classification(v.Industry)

		if grouped[sector] == nil {
			grouped[sector] = make(map[string][]StockNode)
		}
		grouped[sector][industry] = append(grouped[sector][industry], StockNode{StockView: v, Type: "stock"})
	}

	tree := make([]SectorNode, 0, len(grouped))
	for _, sector := range sortedKeys(grouped) {
		industries := grouped[sector]
		node := SectorNode{Name: sector, Type: "sector", Children: make([]IndustryNode, 0, len(industries))}

		names := make([]string, 0, len(industries))
		for name := range industries {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, industry := range names {
			stocks := industries[industry]
			sort.Slice(stocks, func(i, j int) bool { return stocks[i].Symbol < stocks[j].Symbol })
			node.Children = append(node.Children, IndustryNode{Name: industry, Type: "industry", Children: stocks})
		}
		tree = append(tree, node)
	}
	return tree
}

// GraphNode is a node of the force-graph rendering
type GraphNode struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"` // sector, industry, stock
	Value int    `json:"value"`

	Stock *contracts.StockView `json:"stock,omitempty"`
}

// GraphLink connects a parent node to a child
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int    `json:"value"`
}

// Graph is the nodes/links form of the sector tree
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// BuildGraph flattens the sector tree into nodes and links
func BuildGraph(tree []SectorNode) Graph {
	g := Graph{Nodes: []GraphNode{}, Links: []GraphLink{}}
	for _, sector := range tree {
		sectorID := "sector_" + sector.Name
		g.Nodes = append(g.Nodes, GraphNode{ID: sectorID, Name: sector.Name, Group: "sector", Value: 30})

		for _, industry := range sector.Children {
			industryID := "industry_" + sector.Name + "_" + industry.Name
			g.Nodes = append(g.Nodes, GraphNode{ID: industryID, Name: industry.Name, Group: "industry", Value: 20})
			g.Links = append(g.Links, GraphLink{Source: sectorID, Target: industryID, Value: 2})

			for i := range industry.Children {
				view := industry.Children[i].StockView
				g.Nodes = append(g.Nodes, GraphNode{ID: view.Symbol, Name: view.Symbol, Group: "stock", Value: 10, Stock: &view})
				g.Links = append(g.Links, GraphLink{Source: industryID, Target: view.Symbol, Value: 1})
			}
		}
	}
	return g
}

func classification(label string) string {
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, "None") {
		return unknownLabel
	}
	return label
}

func sortedKeys(m map[string]map[string][]StockNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
