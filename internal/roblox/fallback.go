package roblox

// fallbackUniverses keeps the poller alive when every discovery endpoint is
// down: a hand-curated set of consistently popular universes. Stale entries
// only cost a wasted batch slot, so the list is refreshed rarely.
var fallbackUniverses = []int64{
	994732206, 245662005, 383310974, 47545, 210851291, 4924922222, 185655149,
	10977891899, 5902977743, 8737602446, 1537690962, 1182249705, 142823291,
	1400147734, 920587237, 8149070699, 3351674303, 5569431581, 6381829480,
	4872321990, 4520749081, 13822889, 9498006165, 488667523, 286090429,
	3823781113, 447452406, 2010620636, 2013640567, 3291301470, 511316432,
	2216618303, 3145447021, 5926001758, 3192707582, 275420544, 263761432,
	92012076, 1377239466, 6284583030, 2988862959, 2583109575, 1540764883,
	5763726676, 3019923553, 5938036553,
}
