// Package category 把 Bork 商品群組的任一節點解析到其根節點（主分類）。
package category

import (
	"strings"

	"opsboard/internal/database/mongodb/model"
)

// MaxDepth 來源資料可能有循環，往上走最多這麼多層
const MaxDepth = 10

type Result struct {
	MainCategory *string `json:"mainCategory"`
	Category     string  `json:"category"`
}

// Resolver 建立後唯讀，可在不同門市的 pass 間共用
type Resolver struct {
	byName map[string]model.ProductGroup
	byID   map[string]model.ProductGroup
}

// New 同名或同 id 的群組以先出現者為準
func New(groups []model.ProductGroup) *Resolver {
	r := &Resolver{
		byName: make(map[string]model.ProductGroup, len(groups)),
		byID:   make(map[string]model.ProductGroup, len(groups)),
	}
	for _, g := range groups {
		if name := strings.TrimSpace(g.GroupName); name != "" {
			if _, dup := r.byName[name]; !dup {
				r.byName[name] = g
			}
		}
		if id := strings.TrimSpace(g.GroupID); id != "" {
			if _, dup := r.byID[id]; !dup {
				r.byID[id] = g
			}
		}
	}
	return r
}

func (r *Resolver) Len() int {
	return len(r.byName)
}

func (r *Resolver) lookupName(name string) (model.ProductGroup, bool) {
	g, ok := r.byName[strings.TrimSpace(name)]
	return g, ok
}

// FindMainCategory 未知的群組或無法判斷層級的孤立節點回傳 MainCategory=nil
func (r *Resolver) FindMainCategory(name string) Result {
	result := Result{Category: name}
	leaf, ok := r.lookupName(name)
	if !ok {
		return result
	}
	if isRoot(leaf) {
		result.MainCategory = ptr(leaf.GroupName)
		return result
	}
	if !hasParentRef(leaf) {
		if isRootLevel(leaf) {
			result.MainCategory = ptr(leaf.GroupName)
		}
		return result
	}

	visited := map[string]bool{key(leaf): true}
	current := leaf
	lastKnownParent := ""
	for depth := 0; depth < MaxDepth; depth++ {
		parent, found, refName := r.parentOf(current)
		if refName != "" {
			lastKnownParent = refName
		}
		if !found {
			// 父節點缺漏：退回最後已知的父名稱
			if lastKnownParent != "" {
				result.MainCategory = ptr(lastKnownParent)
			}
			return result
		}
		if visited[key(parent)] {
			result.MainCategory = ptr(current.GroupName)
			return result
		}
		if isRoot(parent) || !hasParentRef(parent) {
			result.MainCategory = ptr(parent.GroupName)
			return result
		}
		visited[key(parent)] = true
		current = parent
	}
	// 超過深度上限：以最後到達的節點為主分類
	result.MainCategory = ptr(current.GroupName)
	return result
}

// parentOf 優先以 parentGroupName 查找，其次 parentGroupId。
// refName 為已知的父節點名稱（找不到節點時仍可能有名稱）
func (r *Resolver) parentOf(g model.ProductGroup) (parent model.ProductGroup, found bool, refName string) {
	if g.ParentGroupName != nil && strings.TrimSpace(*g.ParentGroupName) != "" {
		refName = strings.TrimSpace(*g.ParentGroupName)
		if parent, found = r.lookupName(refName); found {
			return parent, true, parent.GroupName
		}
	}
	if g.ParentGroupID != nil && strings.TrimSpace(*g.ParentGroupID) != "" {
		if parent, found = r.byID[strings.TrimSpace(*g.ParentGroupID)]; found {
			return parent, true, parent.GroupName
		}
	}
	return model.ProductGroup{}, false, refName
}

func hasParentRef(g model.ProductGroup) bool {
	return (g.ParentGroupName != nil && strings.TrimSpace(*g.ParentGroupName) != "") ||
		(g.ParentGroupID != nil && strings.TrimSpace(*g.ParentGroupID) != "")
}

// isRoot 第一層且沒有 parentGroupId；殘留的 parentGroupName 不算父節點
func isRoot(g model.ProductGroup) bool {
	return isRootLevel(g) && (g.ParentGroupID == nil || strings.TrimSpace(*g.ParentGroupID) == "")
}

func isRootLevel(g model.ProductGroup) bool {
	return g.GroupLevel != nil && *g.GroupLevel == 1
}

func key(g model.ProductGroup) string {
	if g.GroupID != "" {
		return "id:" + g.GroupID
	}
	return "name:" + g.GroupName
}

func ptr(s string) *string {
	return &s
}
