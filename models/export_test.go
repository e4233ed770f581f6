package models

var LockSalesVoucher = lockSalesVoucher
