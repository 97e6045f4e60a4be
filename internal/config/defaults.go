package config

// DefaultRaw returns the complete default configuration as the nested
// mapping templates see. Every key here is addressable through config.*
// template paths, which is why defaults live as data rather than struct
// literals.
func DefaultRaw() map[string]any {
	return map[string]any{
		"pre_steps": []any{
			"fetch_url",
			"identify",
			"identify_web_search",
			"extract_release_preferences",
			"determine_media_type",
			"resolve_track_release",
		},
		"default_workflow": "music",
		"workflows": []any{
			map[string]any{
				"name":  "music",
				"match": map[string]any{"media_type": "music"},
				"steps": []any{
					"indexer_search",
					"filter_categories",
					"filter_match",
					"tracker_enrich",
					"filter_by_version",
					"rank_releases",
					"decide",
					"indexer_grab",
					"store_tags",
				},
			},
			map[string]any{
				"name":  "movie",
				"match": map[string]any{"media_type": "movie"},
				"steps": []any{"dispatch_movie"},
			},
			map[string]any{
				"name":  "tv",
				"match": map[string]any{"media_type": "tv"},
				"steps": []any{"dispatch_tv"},
			},
			map[string]any{
				"name":  "book",
				"match": map[string]any{"media_type": "book"},
				"steps": []any{
					"indexer_search",
					"filter_categories",
					"filter_match",
					"book_format",
					"rank_releases",
					"decide",
					"indexer_grab",
				},
			},
		},
		"steps": map[string]any{
			"fetch_url": map[string]any{
				"builtin":               "fetch_url",
				"timeout":               15,
				"retries":               1,
				"retry_backoff_seconds": 0.5,
				"headers": map[string]any{
					"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
					"Accept-Language": "en-US,en;q=0.9",
				},
			},
			"identify": map[string]any{"builtin": "identify"},
			"resolve_track_release": map[string]any{
				"builtin":               "resolve_track_release",
				"release_priority":      []any{"Album", "EP", "Single", "Live album"},
				"timeout":               20,
				"retries":               1,
				"retry_backoff_seconds": 0.5,
			},
			"identify_web_search": map[string]any{
				"builtin":               "identify_web_search",
				"result_limit":          10,
				"update_query":          true,
				"consensus_override":    true,
				"min_match_ratio":       0.4,
				"min_token_matches":     2,
				"min_confirmations":     2,
				"single_match_ratio":    0.75,
				"cache":                 map[string]any{"enabled": true, "ttl_seconds": 3600},
				"timeout":               15,
				"retries":               2,
				"retry_backoff_seconds": 0.5,
				"query_fields": map[string]any{
					"music":   []any{"work.artist", "work.title", "work.year", "request.query"},
					"movie":   []any{"work.title", "work.year", "request.query"},
					"tv":      []any{"work.title", "work.year", "request.query"},
					"book":    []any{"work.title", "work.author", "work.year", "request.query"},
					"default": []any{"request.query"},
				},
			},
			"determine_media_type": map[string]any{
				"builtin":      "determine_media_type",
				"result_limit": 10,
				"min_score":    2,
				"fallback":     true,
			},
			"extract_release_preferences": map[string]any{
				"builtin": "extract_release_preferences",
				"edition_keywords": map[string]any{
					"deluxe":      []any{"deluxe", "special edition"},
					"anniversary": []any{"anniversary", "anniv"},
					"studio":      []any{"studio"},
					"live":        []any{"live", "concert"},
					"bootleg":     []any{"bootleg"},
				},
				"media_keywords": map[string]any{
					"cd":      []any{"cd"},
					"vinyl":   []any{"vinyl", "lp"},
					"web":     []any{"web", "digital"},
					"sacd":    []any{"sacd"},
					"blu-ray": []any{"blu-ray", "bluray"},
				},
				"format_keywords": map[string]any{
					"flac":      []any{"flac", "lossless"},
					"v0":        []any{"v0"},
					"320":       []any{"320", "320kbps", "320k"},
					"audiobook": []any{"audiobook", "audio book", "audible", "m4b", "aax"},
					"ebook":     []any{"ebook", "e-book", "epub", "mobi", "azw", "azw3", "pdf", "kindle"},
				},
			},
			"indexer_search": map[string]any{
				"builtin":               "indexer_search",
				"result_limit":          50,
				"normalize_query":       true,
				"cache":                 map[string]any{"enabled": true, "ttl_seconds": 1800},
				"timeout":               20,
				"retries":               2,
				"retry_backoff_seconds": 0.5,
			},
			"filter_categories": map[string]any{
				"builtin":                  "filter_categories",
				"allow_missing_categories": false,
				"category_prefixes": map[string]any{
					"music": []any{30},
				},
			},
			"filter_match": map[string]any{
				"builtin":                "filter_match",
				"min_match_ratio":        0.4,
				"min_token_matches":      2,
				"keep_original_on_empty": false,
			},
			"tracker_enrich": map[string]any{
				"builtin":               "tracker_enrich",
				"enabled_media":         []any{"music"},
				"cache":                 map[string]any{"enabled": true, "ttl_seconds": 86400},
				"timeout":               20,
				"retries":               1,
				"retry_backoff_seconds": 0.5,
			},
			"tracker_comments": map[string]any{
				"builtin":               "tracker_comments",
				"enabled_media":         []any{"music"},
				"max_pages":             3,
				"cache":                 map[string]any{"enabled": true, "ttl_seconds": 86400},
				"timeout":               20,
				"retries":               1,
				"retry_backoff_seconds": 0.5,
			},
			"apply_recommendations": map[string]any{
				"builtin":        "apply_recommendations",
				"weight":         500,
				"catalog_weight": 1.0,
				"label_weight":   0.7,
				"title_weight":   0.5,
				"media_weight":   0.4,
				"year_weight":    0.3,
			},
			"filter_by_version": map[string]any{"builtin": "filter_by_version"},
			"book_format":       map[string]any{"builtin": "book_format"},
			"rank_releases":     map[string]any{"builtin": "rank_releases"},
			"decide": map[string]any{
				"builtin":              "decide",
				"auto_select_formats":  true,
				"auto_select_explicit": true,
			},
			"indexer_grab": map[string]any{
				"builtin":               "indexer_grab",
				"timeout":               20,
				"retries":               1,
				"retry_backoff_seconds": 0.5,
				"side_effect":           true,
			},
			"dispatch_movie": map[string]any{"builtin": "manager_dispatch", "app": "movie"},
			"dispatch_tv":    map[string]any{"builtin": "manager_dispatch", "app": "tv"},
			"dispatch_book":  map[string]any{"builtin": "manager_dispatch", "app": "book"},
			"store_tags":     map[string]any{"builtin": "store_tags"},
		},
		"indexer": map[string]any{
			"url":     "http://localhost:9696",
			"api_key": "CHANGE_ME",
			"timeout": 30,
			"download_clients": map[string]any{},
			"download_client_rules": []any{
				map[string]any{"client_id": 1, "categories": []any{3010, 3040, 3050, 3060}},
				map[string]any{"client_id": 2, "categories": []any{3020}, "category_prefixes": []any{2}},
				map[string]any{"client_id": 3, "category_prefixes": []any{5}},
				map[string]any{"client_id": 4, "categories": []any{3030}, "category_prefixes": []any{7}},
			},
			"search": map[string]any{
				"indexer_ids": map[string]any{
					"music": []any{},
					"book":  []any{},
				},
				"categories": map[string]any{
					"music": []any{3000, 3010, 3040},
					"book":  []any{7000},
				},
				"request": map[string]any{
					"url":     "{config.indexer.url}/api/v1/search",
					"method":  "GET",
					"headers": map[string]any{"X-Api-Key": "{config.indexer.api_key}"},
					"params": map[string]any{
						"query": "{request.query}",
						"type":  "{request.media_type}",
					},
				},
				"response": map[string]any{
					"fallback_keys": []any{"results", "items", "data", "releases"},
					"fields": map[string]any{
						"title":         "title",
						"sort_title":    "sortTitle",
						"size":          "size",
						"files":         "files",
						"seeders":       "seeders",
						"leechers":      "leechers",
						"grabs":         "grabs",
						"age":           "age",
						"indexer_id":    "indexerId",
						"indexer":       "indexer",
						"guid":          "guid",
						"protocol":      "protocol",
						"download_url":  "downloadUrl",
						"info_url":      "infoUrl",
						"publish_date":  "publishDate",
						"file_name":     "fileName",
						"categories":    "categories",
					},
					"include_raw": true,
				},
			},
			"grab": map[string]any{
				"request": map[string]any{
					"url":     "{config.indexer.url}/api/v1/search",
					"method":  "POST",
					"headers": map[string]any{"X-Api-Key": "{config.indexer.api_key}"},
					"json": map[string]any{
						"guid":             "{work.selected.guid}",
						"indexerId":        "{work.selected.indexer_id}",
						"downloadClientId": "{work.download_client_id}",
					},
				},
			},
		},
		"book": map[string]any{
			"default_format": "both",
		},
		"quality_rules": map[string]any{
			"music": map[string]any{
				"title_fields":            []any{"title", "name", "_raw.title", "_raw.name"},
				"release_priority":        []any{"deluxe", "studio", "anniversary", "live", "bootleg"},
				"release_priority_weight": 60,
				"reject": []any{
					`\b24[- ]?bit\b`,
					`\b24/\d{2,3}\b`,
					`\bhi[- ]?res\b`,
					`\b5\.1\b`,
					`\bsurround\b`,
				},
				"score": []any{
					map[string]any{"match": `\bflac\b`, "score": 120, "label": "FLAC"},
					map[string]any{"match": `\balac\b`, "score": 110, "label": "ALAC"},
					map[string]any{"match": `\bwav\b`, "score": 100, "label": "WAV"},
					map[string]any{"match": `\bmp3\b`, "score": 15, "label": "MP3"},
					map[string]any{"match": `\b320\s*kbps\b`, "score": 30, "label": "320kbps"},
					map[string]any{"match": `\b256\s*kbps\b`, "score": 20, "label": "256kbps"},
					map[string]any{"match": `\b192\s*kbps\b`, "score": 10, "label": "192kbps"},
					map[string]any{"match": `\bV0\b`, "score": 25, "label": "V0"},
					map[string]any{"match": `\bV2\b`, "score": 10, "label": "V2"},
					map[string]any{"match": `\bweb\b`, "score": 60, "label": "WEB"},
					map[string]any{"match": `\bcd\b`, "score": 40, "label": "CD"},
					map[string]any{"match": `\bsacd\b`, "score": 5, "label": "SACD"},
					map[string]any{"match": `\bvinyl\b`, "score": -10, "label": "VINYL"},
				},
				"numeric_fields": []any{
					map[string]any{"path": "seeders", "weight": 0.3, "label": "seeders"},
					map[string]any{"path": "size", "weight": 2.0, "scale": 1000000000, "label": "size_gb"},
					map[string]any{"path": "derived.bitrate_kbps", "weight": 0.05, "label": "bitrate"},
				},
			},
			"book": map[string]any{
				"title_fields": []any{"title", "name", "_raw.title", "_raw.name"},
				"format_rules": map[string]any{
					"audiobook": map[string]any{
						"score": []any{
							map[string]any{"match": `audiobook|audio`, "score": 50, "label": "audio"},
						},
						"reject": []any{
							`\b(epub|mobi|azw3|pdf)\b`,
						},
					},
					"ebook": map[string]any{
						"score": []any{
							map[string]any{"match": `\b(epub|mobi|azw3|pdf)\b`, "score": 50, "label": "ebook"},
						},
						"reject": []any{
							`audiobook|audio`,
						},
					},
				},
			},
		},
		"web_search": map[string]any{
			"provider": "kagi",
			"providers": map[string]any{
				"brave": map[string]any{
					"api_key":     "CHANGE_ME",
					"api_version": "2023-01-01",
					"request": map[string]any{
						"url":    "https://api.search.brave.com/res/v1/web/search",
						"method": "GET",
						"headers": map[string]any{
							"Accept":               "application/json",
							"Accept-Encoding":      "gzip",
							"Api-Version":          "{config.web_search.providers.brave.api_version}",
							"X-Subscription-Token": "{config.web_search.providers.brave.api_key}",
						},
						"params": map[string]any{
							"q":     "{request.query}",
							"count": 5,
						},
					},
					"response": map[string]any{
						"results_path": "web.results",
						"fields": map[string]any{
							"title":   "title",
							"url":     "url",
							"snippet": "description",
						},
						"include_raw": false,
					},
				},
				"kagi": map[string]any{
					"api_key": "${ENV:KAGI_SEARCH_API_KEY}",
					"request": map[string]any{
						"url":    "https://kagi.com/api/v0/search",
						"method": "GET",
						"headers": map[string]any{
							"Authorization": "Bot {config.web_search.providers.kagi.api_key}",
						},
						"params": map[string]any{
							"q":     "{request.query}",
							"limit": 5,
						},
					},
					"response": map[string]any{
						"results_path":  "data",
						"fallback_keys": []any{"data", "results"},
						"filter":        map[string]any{"field": "t", "equals": 0},
						"fields": map[string]any{
							"title":   "title",
							"url":     "url",
							"snippet": "snippet",
						},
						"include_raw": false,
					},
				},
			},
		},
		"tracker": map[string]any{
			"url":     "https://tracker.example",
			"api_key": "CHANGE_ME",
			"timeout": 20,
			"release_type_map": map[string]any{
				"1":  "Album",
				"3":  "Soundtrack",
				"5":  "EP",
				"6":  "Anthology",
				"7":  "Compilation",
				"9":  "Single",
				"11": "Live album",
				"13": "Remix",
				"14": "Bootleg",
				"15": "Interview",
				"16": "Mixtape",
				"17": "Demo",
				"18": "Concert Recording",
				"19": "DJ Mix",
				"21": "Unknown",
			},
		},
		"media_type_detection": map[string]any{
			"keywords": map[string]any{
				"music": []any{"album", "single", "ep", "track", "song", "artist", "lyrics", "discography"},
				"movie": []any{"movie", "film", "trailer", "cast", "director", "runtime"},
				"tv":    []any{"tv", "series", "season", "episode", "show", "s01", "e01"},
				"book":  []any{"book", "novel", "author", "isbn", "paperback", "kindle", "audiobook"},
			},
		},
		"manager": map[string]any{
			"movie": map[string]any{
				"url":                "http://localhost:7878",
				"api_key":            "CHANGE_ME",
				"root_folder":        "/media/movies",
				"quality_profile_id": 1,
				"endpoint":           "/api/v3/movie",
			},
			"tv": map[string]any{
				"url":                "http://localhost:8989",
				"api_key":            "CHANGE_ME",
				"root_folder":        "/media/tv",
				"quality_profile_id": 1,
				"endpoint":           "/api/v3/series",
			},
			"book": map[string]any{
				"url":                "http://localhost:8787",
				"api_key":            "CHANGE_ME",
				"root_folder":        "/media/books",
				"quality_profile_id": 1,
				"endpoint":           "/api/v1/book",
			},
		},
		"cache": map[string]any{
			"backend": "file",
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "console",
		},
		"retries": map[string]any{
			"retries":               1,
			"retry_backoff_seconds": 0.5,
			"max_backoff_seconds":   4.0,
		},
	}
}
