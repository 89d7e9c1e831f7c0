package rules

// Default returns the compiled-in rule set used when no rule file is given.
// It targets pages built around div.mainContent with an h1.pageTitle heading.
func Default() *RuleSet {
	return &RuleSet{
		Name:          "maincontent",
		Version:       1,
		TitleSelector: "h1.pageTitle",
		LinkPolicy:    LinkEmptyHref,
		SVGPolicy:     SVGRetainAll,
		Directives: []Directive{
			{Step: 10, Type: ExtractTitle},
			{Step: 20, Type: FlattenLinks},
		},
		PostRemove: []string{
			"style",
			"script",
			"header",
			"div.mainContent svg.icon.hollow",
			"div.mainContent div.noCarousel div.video-container",
			"div.mainContent #carousel div.video-container",
			"div.mainContent #carousel div.moreVideos",
			"div.mainContent div.textBelow",
			"div.mainContent div.quoteBlock div.top",
			"div.mainContent .ng-hide",
			"div.mainContent span.statistic.after",
			"div.mainContent div.graph",
			"div.mainContent .viewToggle",
			"div.mainContent div.expansionBlock div.blockVid",
			"div.mainContent div.expansionBlock span.blockVid",
			"div.mainContent div.expansionBlock div.blockTouch",
			"div.mainContent div.expansionBlock svg.icon-arrow-thin",
			"div.mainContent div.expandedContent span.blockVid",
			"div.mainContent div.expandedContent div.img:has(div.labels)",
			"div[onload]",
			"footer",
		},
	}
}

// DefaultRemovalSpecs are applied by the crawler to every content region.
func DefaultRemovalSpecs() []RemovalSpec {
	return []RemovalSpec{
		{
			Selector:  "img[data-src]",
			Attribute: "data-src",
			Contains:  "stats.wordpress.com/b.gif",
		},
	}
}
