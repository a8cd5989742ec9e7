// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package preferences

import "github.com/samber/lo"

// Preferences is the typed view of the preference tree.
type Preferences struct {
	Theme         string        `json:"theme" yaml:"theme"`
	Density       string        `json:"density" yaml:"density"`
	FocusMode     bool          `json:"focusMode" yaml:"focusMode"`
	ShowEarnings  bool          `json:"showEarnings" yaml:"showEarnings"`
	DefaultView   string        `json:"defaultView" yaml:"defaultView"`
	Notifications Notifications `json:"notifications" yaml:"notifications"`
	QuickActions  QuickActions  `json:"quickActions" yaml:"quickActions"`
	Goals         Goals         `json:"goals" yaml:"goals"`
}

type Notifications struct {
	Email       bool `json:"email" yaml:"email"`
	Push        bool `json:"push" yaml:"push"`
	TaskUpdates bool `json:"taskUpdates" yaml:"taskUpdates"`
	Offers      bool `json:"offers" yaml:"offers"`
	Reviews     bool `json:"reviews" yaml:"reviews"`
	Payouts     bool `json:"payouts" yaml:"payouts"`
	Sound       bool `json:"sound" yaml:"sound"`
}

type QuickActions struct {
	PostTask    bool `json:"postTask" yaml:"postTask"`
	BrowseTasks bool `json:"browseTasks" yaml:"browseTasks"`
	Messages    bool `json:"messages" yaml:"messages"`
	Payouts     bool `json:"payouts" yaml:"payouts"`
}

type Goals struct {
	WeeklyEarnings    float64 `json:"weeklyEarnings" yaml:"weeklyEarnings"`
	MonthlyTasks      float64 `json:"monthlyTasks" yaml:"monthlyTasks"`
	DailyFocusMinutes float64 `json:"dailyFocusMinutes" yaml:"dailyFocusMinutes"`
}

// Known leaves.
var (
	Theme        = EnumKey{Path: Path{"theme"}, Allowed: []string{"system", "light", "dark"}}
	Density      = EnumKey{Path: Path{"density"}, Allowed: []string{"comfortable", "compact"}}
	FocusMode    = BoolKey{Path: Path{"focusMode"}}
	ShowEarnings = BoolKey{Path: Path{"showEarnings"}}
	DefaultView  = EnumKey{Path: Path{"defaultView"}, Allowed: []string{"board", "list"}}

	NotifyEmail       = BoolKey{Path: Path{"notifications", "email"}}
	NotifyPush        = BoolKey{Path: Path{"notifications", "push"}}
	NotifyTaskUpdates = BoolKey{Path: Path{"notifications", "taskUpdates"}}
	NotifyOffers      = BoolKey{Path: Path{"notifications", "offers"}}
	NotifyReviews     = BoolKey{Path: Path{"notifications", "reviews"}}
	NotifyPayouts     = BoolKey{Path: Path{"notifications", "payouts"}}
	NotifySound       = BoolKey{Path: Path{"notifications", "sound"}}

	QuickPostTask    = BoolKey{Path: Path{"quickActions", "postTask"}}
	QuickBrowseTasks = BoolKey{Path: Path{"quickActions", "browseTasks"}}
	QuickMessages    = BoolKey{Path: Path{"quickActions", "messages"}}
	QuickPayouts     = BoolKey{Path: Path{"quickActions", "payouts"}}

	WeeklyEarnings    = NumberKey{Path: Path{"goals", "weeklyEarnings"}}
	MonthlyTasks      = NumberKey{Path: Path{"goals", "monthlyTasks"}}
	DailyFocusMinutes = NumberKey{Path: Path{"goals", "dailyFocusMinutes"}}
)

// Leaf is one known preference with its default.
type Leaf struct {
	Path    Path
	Default Value
	Allowed []string
}

// schema lists every known leaf in display order. The default tree is
// derived from it, so every leaf has a default.
var schema = []Leaf{
	{Path: Theme.Path, Default: Enum("system"), Allowed: Theme.Allowed},
	{Path: Density.Path, Default: Enum("comfortable"), Allowed: Density.Allowed},
	{Path: FocusMode.Path, Default: Bool(false)},
	{Path: ShowEarnings.Path, Default: Bool(true)},
	{Path: DefaultView.Path, Default: Enum("board"), Allowed: DefaultView.Allowed},

	{Path: NotifyEmail.Path, Default: Bool(true)},
	{Path: NotifyPush.Path, Default: Bool(true)},
	{Path: NotifyTaskUpdates.Path, Default: Bool(true)},
	{Path: NotifyOffers.Path, Default: Bool(true)},
	{Path: NotifyReviews.Path, Default: Bool(true)},
	{Path: NotifyPayouts.Path, Default: Bool(true)},
	{Path: NotifySound.Path, Default: Bool(false)},

	{Path: QuickPostTask.Path, Default: Bool(true)},
	{Path: QuickBrowseTasks.Path, Default: Bool(true)},
	{Path: QuickMessages.Path, Default: Bool(true)},
	{Path: QuickPayouts.Path, Default: Bool(true)},

	{Path: WeeklyEarnings.Path, Default: Number(500)},
	{Path: MonthlyTasks.Path, Default: Number(10)},
	{Path: DailyFocusMinutes.Path, Default: Number(120)},
}

// Schema returns the known leaves in display order.
func Schema() []Leaf {
	return lo.Map(schema, func(l Leaf, _ int) Leaf {
		l.Path = append(Path(nil), l.Path...)
		l.Allowed = append([]string(nil), l.Allowed...)
		return l
	})
}

// Defaults returns a fresh copy of the default tree.
func Defaults() map[string]any {
	tree := map[string]any{}
	for _, l := range schema {
		setIn(tree, l.Path, l.Default.raw())
	}
	return tree
}

func lookupLeaf(p Path) (Leaf, bool) {
	return lo.Find(schema, func(l Leaf) bool { return equalPath(l.Path, p) })
}

// conflictsWithSchema reports whether p would turn a known leaf into a group
// or a known group into a leaf.
func conflictsWithSchema(p Path) bool {
	return lo.SomeBy(schema, func(l Leaf) bool {
		if equalPath(l.Path, p) {
			return false
		}
		return hasPrefix(l.Path, p) || hasPrefix(p, l.Path)
	})
}

func equalPath(a, b Path) bool {
	return len(a) == len(b) && hasPrefix(a, b)
}

func hasPrefix(p, prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}
