package subscriber

// bounds is a latitude/longitude box
type bounds struct {
	minLat, maxLat float64
	minLon, maxLon float64
}

// stateBounds holds the coordinate box of every valid USPS state code.
// A coordinate outside its row's box is reported as a warning only.
var stateBounds = map[string]bounds{
	"AL": {30.137521, 35.008028, -88.473227, -84.889080},
	"AK": {51.214183, 71.538800, -179.148909, 179.778470},
	"AZ": {31.332177, 37.004260, -114.816510, -109.045223},
	"AR": {33.004106, 36.499749, -94.617919, -89.644395},
	"CA": {32.534156, 42.009518, -124.409591, -114.131211},
	"CO": {36.993076, 41.003444, -109.060253, -102.041524},
	"CT": {40.980144, 42.050587, -73.727775, -71.786994},
	"DE": {38.451013, 39.839007, -75.788658, -75.048939},
	"FL": {24.396308, 31.001056, -87.634896, -80.031056},
	"GA": {30.355657, 35.001180, -85.605165, -80.840141},
	"HI": {18.911680, 28.517269, -178.334698, -154.806773},
	"ID": {41.988057, 49.001146, -117.243027, -111.043564},
	"IL": {36.970298, 42.508481, -91.513079, -87.494756},
	"IN": {37.771743, 41.760592, -88.097892, -84.787981},
	"IA": {40.375437, 43.501196, -96.639704, -90.140061},
	"KS": {36.993016, 40.003166, -102.051744, -94.588413},
	"KY": {36.496486, 39.147458, -89.571510, -81.964971},
	"LA": {28.928609, 33.019543, -94.043147, -88.817017},
	"ME": {42.977764, 47.459686, -71.083924, -66.949895},
	"MD": {37.911717, 39.723043, -79.487651, -75.048939},
	"MA": {41.238100, 42.886589, -73.508142, -69.928393},
	"MI": {41.696118, 48.305884, -90.418136, -82.413474},
	"MN": {43.499361, 49.384358, -97.239209, -89.483385},
	"MS": {30.173943, 35.005002, -91.655009, -88.097892},
	"MO": {35.995683, 40.613639, -95.774704, -89.098843},
	"MT": {44.358209, 49.001390, -116.050002, -104.039138},
	"NE": {39.999932, 43.001708, -104.053514, -95.308290},
	"NV": {35.001857, 42.002207, -120.005746, -114.039648},
	"NH": {42.697037, 45.305476, -72.557247, -70.610621},
	"NJ": {38.928609, 41.357423, -75.559614, -73.893979},
	"NM": {31.332301, 37.000293, -109.050173, -103.001964},
	"NY": {40.496103, 45.015850, -79.762152, -71.856214},
	"NC": {33.840233, 36.588117, -84.321869, -75.460621},
	"ND": {45.935054, 49.000574, -104.048900, -96.554507},
	"OH": {38.403202, 41.977523, -84.820159, -80.518693},
	"OK": {33.615833, 37.002312, -103.002455, -94.430662},
	"OR": {41.991794, 46.299099, -124.566244, -116.463262},
	"PA": {39.719799, 42.269314, -80.519891, -74.689516},
	"RI": {41.146339, 42.018798, -71.886819, -71.120557},
	"SC": {32.034600, 35.215402, -83.353910, -78.541138},
	"SD": {42.479635, 45.945450, -104.057698, -96.436589},
	"TN": {34.982972, 36.678118, -90.310298, -81.646900},
	"TX": {25.837377, 36.500704, -106.645646, -93.508292},
	"UT": {36.997968, 42.001567, -114.052998, -109.041058},
	"VT": {42.726853, 45.016659, -73.437740, -71.464555},
	"VA": {36.540759, 39.466012, -83.675395, -75.242266},
	"WA": {45.543541, 49.002494, -124.763068, -116.915989},
	"WV": {37.201483, 40.638801, -82.644739, -77.719519},
	"WI": {42.491983, 47.080621, -92.889433, -86.763983},
	"WY": {40.994746, 45.005904, -111.056888, -104.052160},
	"DC": {38.791645, 38.995548, -77.119759, -76.909393},
	"PR": {17.926405, 18.516726, -67.945404, -65.220703},
	"VI": {17.673976, 18.412655, -65.013029, -64.564907},
	"GU": {13.234189, 13.654383, 144.618068, 144.956706},
	"AS": {-14.548699, -14.120151, -170.841600, -169.406622},
	"MP": {14.093068, 20.553762, 145.128345, 145.853700},
}

// ValidState reports whether code is a USPS state or territory code
func ValidState(code string) bool {
	_, ok := stateBounds[code]
	return ok
}

// InStateBounds reports whether a point lies in the box of state. The second
// result is false when state has no box.
func InStateBounds(state string, lat, lon float64) (inside, known bool) {
	b, ok := stateBounds[state]
	if !ok {
		return false, false
	}
	return lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon, true
}
