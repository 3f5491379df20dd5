package auth

var CheckRecent = checkRecent
